// Package file provides file-based persistence: one JSON document per entity under a root directory.
package file

import (
	"context"
	"os"
	"strings"
	"sync"

	"github.com/incaya/farmbot-school-backend/pkg/models"
	"github.com/incaya/farmbot-school-backend/pkg/persistence"
)

// Persistence implements the persistence.Persistence interface using the file system.
type Persistence struct {
	root string
	// mu guards invariants spanning several files, such as pin uniqueness.
	mu *sync.Mutex

	sequenceRepo  *SequenceRepository
	pinRepo       *PinRepository
	challengeRepo *ChallengeRepository
	userRepo      *UserRepository
	tokenRepo     *DeviceTokenRepository
}

// NewPersistence creates a new instance of Persistence with the specified root directory.
func NewPersistence(root string) *Persistence {
	cleanRoot := strings.Replace(root, "file://", "", 1)

	mu := &sync.Mutex{}

	return &Persistence{
		root:          cleanRoot,
		mu:            mu,
		sequenceRepo:  &SequenceRepository{store: newStore[models.Sequence](cleanRoot, "sequences", mu)},
		pinRepo:       &PinRepository{store: newStore[models.PinEntry](cleanRoot, "pins", mu)},
		challengeRepo: &ChallengeRepository{store: newStore[models.Challenge](cleanRoot, "challenges", mu)},
		userRepo:      &UserRepository{store: newStore[models.User](cleanRoot, "users", mu)},
		tokenRepo:     &DeviceTokenRepository{root: cleanRoot, mu: mu},
	}
}

// Close performs any necessary cleanup. For file-based persistence, there is nothing to clean up.
func (fp *Persistence) Close(_ context.Context) error {
	return nil
}

// HealthCheck checks if the file persistence layer is healthy by verifying the root directory exists.
func (fp *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(fp.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

func (fp *Persistence) Sequences() persistence.SequenceRepository   { return fp.sequenceRepo }
func (fp *Persistence) Pins() persistence.PinRepository             { return fp.pinRepo }
func (fp *Persistence) Challenges() persistence.ChallengeRepository { return fp.challengeRepo }
func (fp *Persistence) Users() persistence.UserRepository           { return fp.userRepo }
func (fp *Persistence) DeviceTokens() persistence.TokenStore        { return fp.tokenRepo }
