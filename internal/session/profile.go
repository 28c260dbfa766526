package session

import (
	"context"

	"prema-client/internal/apperr"
	"prema-client/internal/models"
	"prema-client/internal/photos"
)

// UpdateUser sends a partial profile and replaces the local user with the
// server's copy.
func (m *Manager) UpdateUser(ctx context.Context, update models.ProfileUpdate) error {
	creds, err := m.requireCredentials()
	if err != nil {
		return err
	}
	if err := models.Validate(update); err != nil {
		return apperr.Wrap(err.Error(), err)
	}

	user, err := m.client.UpdateProfile(ctx, creds, update)
	if err != nil {
		return err
	}
	if !m.replaceUser(creds.Token, user) {
		m.logger.Debug().Msg("Session changed during profile update, response dropped")
	}
	return nil
}

// RefreshUser reloads the user from the backend. The server copy replaces
// any optimistic local change.
func (m *Manager) RefreshUser(ctx context.Context) error {
	creds, err := m.requireCredentials()
	if err != nil {
		return err
	}

	user, err := m.client.CurrentUser(ctx, creds)
	if err != nil {
		m.logger.Error().Err(err).Msg("Error refreshing user")
		return err
	}
	if !m.replaceUser(creds.Token, user) {
		m.logger.Debug().Msg("Session changed during refresh, response dropped")
	}
	return nil
}

// UpdateUserPhotos replaces the local photo list without calling the
// backend. The next RefreshUser reconciles it.
func (m *Manager) UpdateUserPhotos(list []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.user == nil {
		m.logger.Debug().Msg("No user found, cannot update photos")
		return
	}
	m.user.Photos = append([]string(nil), list...)
}

// UploadPhoto uploads p, applies the returned list locally and then
// refreshes from the server. A failed refresh is logged only.
func (m *Manager) UploadPhoto(ctx context.Context, p photos.Photo) ([]string, error) {
	creds, err := m.requireCredentials()
	if err != nil {
		return nil, err
	}
	if m.uploader == nil {
		return nil, apperr.New("Photo upload is not available")
	}

	list, err := m.uploader.Upload(ctx, creds, m.currentPhotos(), p)
	if err != nil {
		return nil, err
	}
	m.UpdateUserPhotos(list)
	_ = m.RefreshUser(ctx)
	return m.currentPhotos(), nil
}

// DeletePhoto removes photoURL from the profile.
func (m *Manager) DeletePhoto(ctx context.Context, photoURL string) ([]string, error) {
	creds, err := m.requireCredentials()
	if err != nil {
		return nil, err
	}
	if m.uploader == nil {
		return nil, apperr.New("Photo upload is not available")
	}

	list, err := m.uploader.Delete(ctx, creds, m.currentPhotos(), photoURL)
	if err != nil {
		return nil, err
	}
	m.UpdateUserPhotos(list)
	_ = m.RefreshUser(ctx)
	return m.currentPhotos(), nil
}

func (m *Manager) currentPhotos() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.user == nil {
		return nil
	}
	return append([]string(nil), m.user.Photos...)
}
