package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE users (
				id UUID PRIMARY KEY,
				pseudo VARCHAR(255) NOT NULL UNIQUE,
				name VARCHAR(255) NOT NULL DEFAULT '',
				email VARCHAR(255) NOT NULL UNIQUE,
				role VARCHAR(20) NOT NULL CHECK (role IN ('ADMIN', 'USER')),
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE TABLE challenges (
				id UUID PRIMARY KEY,
				title VARCHAR(255) NOT NULL UNIQUE,
				description TEXT NOT NULL DEFAULT '',
				end_date TIMESTAMP WITH TIME ZONE,
				active BOOLEAN NOT NULL DEFAULT true,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE TABLE sequences (
				id UUID PRIMARY KEY,
				user_id UUID NOT NULL,
				challenge_id UUID NOT NULL,
				status VARCHAR(20) NOT NULL CHECK (status IN ('WIP', 'TO_PROCESS', 'PROCESS_WIP', 'PROCESSED')),
				actions JSONB NOT NULL DEFAULT '[]',
				fb_seq_id INTEGER,
				comments JSONB NOT NULL DEFAULT '[]',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_sequences_user_id ON sequences(user_id);
			CREATE INDEX idx_sequences_status ON sequences(status);
			CREATE INDEX idx_sequences_created_at ON sequences(created_at);
		`,
		2: `
			CREATE TABLE pins (
				id UUID PRIMARY KEY,
				material_type VARCHAR(20) NOT NULL CHECK (material_type IN ('PERIPHERAL', 'SENSOR')),
				material_id INTEGER NOT NULL UNIQUE,
				action VARCHAR(255) NOT NULL UNIQUE,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			-- At most one row: the singleton device token.
			CREATE TABLE device_tokens (
				token TEXT NOT NULL,
				token_expires_at TIMESTAMP WITH TIME ZONE NOT NULL
			);
		`,
	}
}
