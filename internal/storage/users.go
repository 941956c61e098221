package storage

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"cookstream/internal/models"
)

func validateUserParams(params CreateUserParams) error {
	name := strings.TrimSpace(params.Name)
	if name == "" {
		return ValidationError{Field: "name", Reason: "is required"}
	}
	if len(name) > MaxNameLength {
		return ValidationError{Field: "name", Reason: fmt.Sprintf("exceeds %d characters", MaxNameLength)}
	}
	if strings.TrimSpace(params.Email) == "" {
		return ValidationError{Field: "email", Reason: "is required"}
	}
	if !strings.Contains(params.Email, "@") {
		return ValidationError{Field: "email", Reason: "is not a valid address"}
	}
	if len(params.Password) < MinPasswordLength {
		return ValidationError{Field: "password", Reason: fmt.Sprintf("must be at least %d characters", MinPasswordLength)}
	}
	if len(params.Bio) > MaxBioLength {
		return ValidationError{Field: "bio", Reason: fmt.Sprintf("exceeds %d characters", MaxBioLength)}
	}
	return nil
}

func (s *Storage) CreateUser(params CreateUserParams) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := validateUserParams(params); err != nil {
		return models.User{}, err
	}

	normalizedEmail := strings.TrimSpace(strings.ToLower(params.Email))
	for _, user := range s.data.Users {
		if user.Email == normalizedEmail {
			return models.User{}, ValidationError{Field: "email", Reason: "already in use"}
		}
	}

	id, err := generateID()
	if err != nil {
		return models.User{}, err
	}

	passwordHash, err := hashPassword(params.Password)
	if err != nil {
		return models.User{}, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()
	user := models.User{
		ID:           id,
		Name:         strings.TrimSpace(params.Name),
		Email:        normalizedEmail,
		PasswordHash: passwordHash,
		AvatarURL:    strings.TrimSpace(params.AvatarURL),
		Bio:          strings.TrimSpace(params.Bio),
		SubscribedTo: []string{},
		SavedVideos:  []string{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	s.data.Users[id] = user
	if err := s.persist(); err != nil {
		delete(s.data.Users, id)
		return models.User{}, err
	}

	return user, nil
}

func (s *Storage) GetUser(id string) (models.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.data.Users[id]
	return user, ok
}

// GetUserByEmail looks up a user by their normalized email address.
func (s *Storage) GetUserByEmail(email string) (models.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	normalizedEmail := strings.TrimSpace(strings.ToLower(email))
	for _, user := range s.data.Users {
		if user.Email == normalizedEmail {
			return user, true
		}
	}
	return models.User{}, false
}

// AuthenticateUser verifies credentials and returns the matching user on success.
func (s *Storage) AuthenticateUser(email, password string) (models.User, error) {
	if password == "" {
		return models.User{}, ErrInvalidCredentials
	}
	user, ok := s.GetUserByEmail(email)
	if !ok {
		return models.User{}, ErrInvalidCredentials
	}
	if err := verifyPassword(user.PasswordHash, password); err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			return models.User{}, ErrInvalidCredentials
		}
		return models.User{}, err
	}
	return user, nil
}

func (s *Storage) UpdateUser(id string, update UserUpdate) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.data.Users[id]
	if !ok {
		return models.User{}, NotFoundError{Entity: "user", ID: id}
	}

	if update.Name != nil {
		name := strings.TrimSpace(*update.Name)
		if name == "" {
			return models.User{}, ValidationError{Field: "name", Reason: "is required"}
		}
		if len(name) > MaxNameLength {
			return models.User{}, ValidationError{Field: "name", Reason: fmt.Sprintf("exceeds %d characters", MaxNameLength)}
		}
		user.Name = name
	}
	if update.AvatarURL != nil {
		user.AvatarURL = strings.TrimSpace(*update.AvatarURL)
	}
	if update.Bio != nil {
		bio := strings.TrimSpace(*update.Bio)
		if len(bio) > MaxBioLength {
			return models.User{}, ValidationError{Field: "bio", Reason: fmt.Sprintf("exceeds %d characters", MaxBioLength)}
		}
		user.Bio = bio
	}
	user.UpdatedAt = time.Now().UTC()

	previous := s.data.Users[id]
	s.data.Users[id] = user
	if err := s.persist(); err != nil {
		s.data.Users[id] = previous
		return models.User{}, err
	}

	return user, nil
}

// Subscribe adds creatorID to the user's subscription list. It reports true
// when the relationship was created and false when it already existed.
func (s *Storage) Subscribe(userID, creatorID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if userID == creatorID {
		return false, ValidationError{Field: "creatorId", Reason: "cannot subscribe to yourself"}
	}
	user, ok := s.data.Users[userID]
	if !ok {
		return false, NotFoundError{Entity: "user", ID: userID}
	}
	if _, ok := s.data.Users[creatorID]; !ok {
		return false, NotFoundError{Entity: "user", ID: creatorID}
	}
	if user.IsSubscribedTo(creatorID) {
		return false, nil
	}

	previous := user
	user.SubscribedTo = append(append([]string(nil), user.SubscribedTo...), creatorID)
	user.UpdatedAt = time.Now().UTC()
	s.data.Users[userID] = user
	if err := s.persist(); err != nil {
		s.data.Users[userID] = previous
		return false, err
	}
	return true, nil
}

// Unsubscribe removes creatorID from the user's subscription list. It reports
// true when a relationship was removed.
func (s *Storage) Unsubscribe(userID, creatorID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.data.Users[userID]
	if !ok {
		return false, NotFoundError{Entity: "user", ID: userID}
	}
	if !user.IsSubscribedTo(creatorID) {
		return false, nil
	}

	previous := user
	filtered := make([]string, 0, len(user.SubscribedTo))
	for _, id := range user.SubscribedTo {
		if id != creatorID {
			filtered = append(filtered, id)
		}
	}
	user.SubscribedTo = filtered
	user.UpdatedAt = time.Now().UTC()
	s.data.Users[userID] = user
	if err := s.persist(); err != nil {
		s.data.Users[userID] = previous
		return false, err
	}
	return true, nil
}

// ListSubscriberIDs returns the IDs of every user subscribed to the creator.
func (s *Storage) ListSubscriberIDs(creatorID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.data.Users[creatorID]; !ok {
		return nil, NotFoundError{Entity: "user", ID: creatorID}
	}
	ids := make([]string, 0)
	for id, user := range s.data.Users {
		if user.IsSubscribedTo(creatorID) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// CountSubscribers derives the subscriber count from the subscription
// relation rather than a stored counter.
func (s *Storage) CountSubscribers(creatorID string) (int, error) {
	ids, err := s.ListSubscriberIDs(creatorID)
	if err != nil {
		return 0, err
	}
	return len(ids), nil
}
