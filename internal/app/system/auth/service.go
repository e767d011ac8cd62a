package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	gosync "sync"
	"time"

	"github.com/dalemusser/greencrew/internal/app/system/mailer"
	"github.com/dalemusser/greencrew/internal/app/system/normalize"
	"github.com/dalemusser/greencrew/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

var (
	// ErrEmailInUse is returned when creating an account with an email
	// that already exists.
	ErrEmailInUse = errors.New("an account with this email already exists")

	// ErrInvalidCredentials is returned for a wrong email or password.
	// Callers must not distinguish which of the two was wrong.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrNoAccount is returned when no account exists for an email.
	ErrNoAccount = errors.New("no account for this email")
)

// Account is the stored credential record. UID doubles as the document
// key and as the profile id in the sync layer.
type Account struct {
	UID          string    `bson:"_id"`
	Email        string    `bson:"email"`
	DisplayName  string    `bson:"display_name"`
	PhotoURL     string    `bson:"photo_url,omitempty"`
	PasswordHash string    `bson:"password_hash,omitempty"`
	PasswordTemp bool      `bson:"password_temp,omitempty"`
	GoogleID     string    `bson:"google_id,omitempty"`
	CreatedAt    time.Time `bson:"created_at"`
	UpdatedAt    time.Time `bson:"updated_at"`
}

// GoogleConfig holds the OAuth client settings for Google sign-in.
// Empty ClientID disables the flow.
type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// Service owns the accounts collection and the auth state. Sign-in and
// sign-out transitions are broadcast to every registered observer, which
// is how the sync controller learns about session changes.
type Service struct {
	c      *mongo.Collection
	mail   *mailer.Mailer
	log    *zap.Logger
	google GoogleConfig

	mu        gosync.Mutex
	current   *models.User
	observers map[int]func(*models.User)
	nextID    int
}

func NewService(db *mongo.Database, mail *mailer.Mailer, google GoogleConfig, logger *zap.Logger) *Service {
	return &Service{
		c:         db.Collection("accounts"),
		mail:      mail,
		log:       logger,
		google:    google,
		observers: make(map[int]func(*models.User)),
	}
}

// OnAuthStateChanged registers an observer that is called with the
// current user on every sign-in and with nil on sign-out. The observer
// is invoked immediately with the present state. The returned cancel
// func detaches it.
func (s *Service) OnAuthStateChanged(fn func(*models.User)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.observers[id] = fn
	current := s.current
	s.mu.Unlock()

	fn(current)

	return func() {
		s.mu.Lock()
		delete(s.observers, id)
		s.mu.Unlock()
	}
}

func (s *Service) setCurrent(u *models.User) {
	s.mu.Lock()
	s.current = u
	fns := make([]func(*models.User), 0, len(s.observers))
	for _, fn := range s.observers {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(u)
	}
}

// CurrentUser returns the signed-in user, or nil.
func (s *Service) CurrentUser() *models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// CreateUser registers a new email/password account and signs it in.
func (s *Service) CreateUser(ctx context.Context, email, password, displayName string) (*models.User, error) {
	if err := ValidatePassword(password); err != nil {
		return nil, err
	}
	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	acct := Account{
		UID:          uuid.NewString(),
		Email:        normalize.Email(email),
		DisplayName:  normalize.Name(displayName),
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if _, err := s.c.InsertOne(ctx, acct); err != nil {
		if wafflemongo.IsDup(err) {
			return nil, ErrEmailInUse
		}
		return nil, err
	}

	u := acct.user()
	s.log.Info("account created", zap.String("uid", acct.UID), zap.String("email", acct.Email))
	s.setCurrent(u)
	return u, nil
}

// SignInWithEmailPassword verifies credentials and signs the account in.
func (s *Service) SignInWithEmailPassword(ctx context.Context, email, password string) (*models.User, error) {
	var acct Account
	err := s.c.FindOne(ctx, bson.M{"email": normalize.Email(email)}).Decode(&acct)
	if err == mongo.ErrNoDocuments {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if acct.PasswordHash == "" || !CheckPassword(password, acct.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	u := acct.user()
	s.log.Info("user signed in", zap.String("uid", acct.UID))
	s.setCurrent(u)
	return u, nil
}

// SignOut clears the auth state and notifies observers.
func (s *Service) SignOut() {
	s.log.Info("user signed out")
	s.setCurrent(nil)
}

// UpdateEmail changes the signed-in account's email address.
func (s *Service) UpdateEmail(ctx context.Context, uid, newEmail string) error {
	addr := normalize.Email(newEmail)
	_, err := s.c.UpdateOne(ctx,
		bson.M{"_id": uid},
		bson.M{"$set": bson.M{"email": addr, "updated_at": time.Now()}})
	if err != nil {
		if wafflemongo.IsDup(err) {
			return ErrEmailInUse
		}
		return err
	}

	s.mu.Lock()
	if s.current != nil && s.current.UID == uid {
		updated := *s.current
		updated.Email = addr
		s.current = &updated
	}
	s.mu.Unlock()
	return nil
}

// ResetPassword sets a temporary password on the account and emails it.
// The account keeps working with the old password until the email write
// lands, so a failed send leaves nothing half-reset.
func (s *Service) ResetPassword(ctx context.Context, email string) error {
	addr := normalize.Email(email)

	var acct Account
	err := s.c.FindOne(ctx, bson.M{"email": addr}).Decode(&acct)
	if err == mongo.ErrNoDocuments {
		return ErrNoAccount
	}
	if err != nil {
		return err
	}

	temp, err := tempPassword()
	if err != nil {
		return err
	}
	hash, err := HashPassword(temp)
	if err != nil {
		return err
	}

	_, err = s.c.UpdateOne(ctx,
		bson.M{"_id": acct.UID},
		bson.M{"$set": bson.M{"password_hash": hash, "password_temp": true, "updated_at": time.Now()}})
	if err != nil {
		return err
	}

	msg := mailer.BuildPasswordResetEmail(mailer.PasswordResetData{
		SiteName:     "GreenCrew",
		DisplayName:  acct.DisplayName,
		TempPassword: temp,
	})
	msg.To = addr
	if err := s.mail.Send(msg); err != nil {
		return fmt.Errorf("password reset email: %w", err)
	}

	s.log.Info("password reset issued", zap.String("uid", acct.UID))
	return nil
}

/* ───────────────────────── google sign-in ───────────────────────── */

// GoogleEnabled reports whether Google sign-in is configured.
func (s *Service) GoogleEnabled() bool {
	return s.google.ClientID != "" && s.google.ClientSecret != ""
}

func (s *Service) oauth2Config() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     s.google.ClientID,
		ClientSecret: s.google.ClientSecret,
		RedirectURL:  s.google.RedirectURL,
		Scopes: []string{
			"openid",
			"https://www.googleapis.com/auth/userinfo.email",
			"https://www.googleapis.com/auth/userinfo.profile",
		},
		Endpoint: google.Endpoint,
	}
}

// AuthCodeURL returns the Google consent screen URL for the given state.
func (s *Service) AuthCodeURL(state string) string {
	return s.oauth2Config().AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// SignInWithGoogle exchanges the OAuth code, fetches the Google profile,
// and signs in the matching account, creating it on first sign-in.
func (s *Service) SignInWithGoogle(ctx context.Context, code string) (*models.User, error) {
	token, err := s.oauth2Config().Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchange oauth code: %w", err)
	}

	info, err := fetchGoogleUserInfo(ctx, token)
	if err != nil {
		return nil, err
	}
	addr := normalize.Email(info.Email)

	var acct Account
	err = s.c.FindOne(ctx, bson.M{"$or": []bson.M{
		{"google_id": info.ID},
		{"email": addr},
	}}).Decode(&acct)

	switch err {
	case nil:
		if acct.GoogleID == "" {
			_, updateErr := s.c.UpdateOne(ctx,
				bson.M{"_id": acct.UID},
				bson.M{"$set": bson.M{"google_id": info.ID, "updated_at": time.Now()}})
			if updateErr != nil {
				s.log.Warn("failed to link google id", zap.Error(updateErr), zap.String("uid", acct.UID))
			}
		}
	case mongo.ErrNoDocuments:
		now := time.Now()
		acct = Account{
			UID:         uuid.NewString(),
			Email:       addr,
			DisplayName: info.Name,
			PhotoURL:    info.Picture,
			GoogleID:    info.ID,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if _, err := s.c.InsertOne(ctx, acct); err != nil {
			if wafflemongo.IsDup(err) {
				return nil, ErrEmailInUse
			}
			return nil, err
		}
		s.log.Info("account created via google", zap.String("uid", acct.UID), zap.String("email", addr))
	default:
		return nil, err
	}

	u := acct.user()
	s.log.Info("user signed in via google", zap.String("uid", acct.UID))
	s.setCurrent(u)
	return u, nil
}

// googleUserInfo represents user info returned from Google.
type googleUserInfo struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

func fetchGoogleUserInfo(ctx context.Context, token *oauth2.Token) (*googleUserInfo, error) {
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(token))

	resp, err := client.Get("https://www.googleapis.com/oauth2/v2/userinfo")
	if err != nil {
		return nil, fmt.Errorf("fetch user info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("userinfo status %d", resp.StatusCode)
	}

	var info googleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("decode user info: %w", err)
	}
	return &info, nil
}

/* ───────────────────────── helpers ───────────────────────── */

func (a Account) user() *models.User {
	return &models.User{
		UID:         a.UID,
		Email:       a.Email,
		DisplayName: a.DisplayName,
		PhotoURL:    a.PhotoURL,
	}
}

func tempPassword() (string, error) {
	b := make([]byte, 9)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	// Base64 keeps letters and digits, satisfying the password rules.
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// GenerateState creates a cryptographically secure OAuth state string.
func GenerateState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}
