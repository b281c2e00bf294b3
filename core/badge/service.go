package badge

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"time"

	qrcode "github.com/skip2/go-qrcode"

	"github.com/Rutik-tetare29/Campushub-sub001/core"
	"github.com/Rutik-tetare29/Campushub-sub001/core/token"
	"github.com/Rutik-tetare29/Campushub-sub001/core/user"
)

var (
	// errors
	ErrBadgeNotFound  = errors.New("badge not found")
	ErrInvalidToken   = errors.New("invalid badge token")
	ErrWrongTokenKind = errors.New("token is not an identity badge")
	ErrExpired        = errors.New("badge has expired")
)

// Badge is a long-lived identity token attached to a person, used for
// roster/ID-style verification rather than live check-in.
type Badge struct {
	PersonID  string    `json:"person_id"`
	Token     string    `json:"token"`
	IssuedBy  string    `json:"issued_by"`
	IssuedAt  time.Time `json:"issued_at"`  // UTC
	ExpiresAt time.Time `json:"expires_at"` // UTC
}

// Payload is the token payload variant for kind "identity-badge".
type Payload struct {
	PersonID  string    `json:"person_id"`
	IssuedBy  string    `json:"issued_by"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Verification is the outcome of a successful badge check.
type Verification struct {
	PersonID string    `json:"person_id"`
	IssuedAt time.Time `json:"issued_at"`
}

// BatchResult is the independent outcome of one person in a batch issuance.
type BatchResult struct {
	PersonID string `json:"person_id"`
	Badge    *Badge `json:"badge,omitempty"`
	Err      error  `json:"-"`
}

type (
	// Repository stores one badge per person. UpsertBadge overwrites any
	// previous badge: re-issuance is an administrative reset, not a conflict.
	Repository interface {
		UpsertBadge(ctx context.Context, b Badge) (Badge, error)
		GetBadgeByPersonID(ctx context.Context, personID string) (Badge, error)
	}

	// Directory looks up people before issuing badges for them.
	Directory interface {
		GetUserByID(ctx context.Context, id string) (user.User, error)
	}

	Service struct {
		repo    Repository
		dir     Directory
		codec   *token.Codec
		mailSvc core.EmailService
		conf    *core.Config
		nowFunc func() time.Time // mockable
	}
)

func NewService(repo Repository, dir Directory, codec *token.Codec, mailSvc core.EmailService, conf *core.Config) *Service {
	return &Service{
		repo:    repo,
		dir:     dir,
		codec:   codec,
		mailSvc: mailSvc,
		conf:    conf,
		nowFunc: time.Now,
	}
}

// Issue mints an identity badge for a person. A zero validFor falls back to
// the configured default (~1 year). No session, no geofence, no duplicate
// check: issuing again simply replaces the previous badge.
func (svc *Service) Issue(ctx context.Context, personID, issuerID string, validFor time.Duration) (Badge, error) {
	person, err := svc.dir.GetUserByID(ctx, personID)
	if err != nil {
		return Badge{}, err
	}

	if validFor <= 0 {
		validFor = svc.conf.Attendance.BadgeValidity
	}

	now := svc.nowFunc().UTC()
	b := Badge{
		PersonID:  person.ID,
		IssuedBy:  issuerID,
		IssuedAt:  now,
		ExpiresAt: now.Add(validFor),
	}
	b.Token, err = svc.codec.Encode(token.KindIdentityBadge, Payload{
		PersonID:  b.PersonID,
		IssuedBy:  b.IssuedBy,
		IssuedAt:  b.IssuedAt,
		ExpiresAt: b.ExpiresAt,
	})
	if err != nil {
		return Badge{}, err
	}

	b, err = svc.repo.UpsertBadge(ctx, b)
	if err != nil {
		return Badge{}, err
	}

	if person.Email != "" {
		msg := &core.EmailMessage{
			To:      []mail.Address{{Name: person.Name, Address: person.Email}},
			Subject: "Your identity badge",
			BodyStr: fmt.Sprintf("A new identity badge has been issued for you, valid until %s.",
				b.ExpiresAt.Format("2006-01-02")),
		}
		if png, err := qrcode.Encode(b.Token, qrcode.Medium, 256); err == nil {
			msg.Attachments = append(msg.Attachments, core.NewAttachment("badge.png", "image/png", png))
		}
		svc.mailSvc.SendMessages(msg)
	}
	return b, nil
}

// IssueBatch issues badges for many people with independent per-person
// outcomes; one failure never aborts the batch.
func (svc *Service) IssueBatch(ctx context.Context, personIDs []string, issuerID string, validFor time.Duration) []BatchResult {
	results := make([]BatchResult, 0, len(personIDs))
	for _, pid := range personIDs {
		res := BatchResult{PersonID: pid}
		if b, err := svc.Issue(ctx, pid, issuerID, validFor); err != nil {
			res.Err = err
		} else {
			res.Badge = &b
		}
		results = append(results, res)
	}
	return results
}

// Verify checks a badge token: decode, kind check, expiry. It is a pure
// token check and needs no stored state.
func (svc *Service) Verify(rawToken string) (Verification, error) {
	env, err := svc.codec.Decode(rawToken)
	if err != nil {
		return Verification{}, ErrInvalidToken
	}
	if env.Kind != token.KindIdentityBadge {
		return Verification{}, ErrWrongTokenKind
	}

	var p Payload
	if err := env.UnmarshalPayload(&p); err != nil {
		return Verification{}, ErrInvalidToken
	}
	if p.PersonID == "" {
		return Verification{}, ErrInvalidToken
	}
	if svc.nowFunc().UTC().After(p.ExpiresAt) {
		return Verification{}, ErrExpired
	}
	return Verification{PersonID: p.PersonID, IssuedAt: p.IssuedAt}, nil
}

// GetByPersonID returns the person's current badge.
func (svc *Service) GetByPersonID(ctx context.Context, personID string) (Badge, error) {
	return svc.repo.GetBadgeByPersonID(ctx, personID)
}
