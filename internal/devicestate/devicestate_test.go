package devicestate

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kawadia/dad-son-fitness-challenge/internal/domain"
)

func TestLoadMissingFile(t *testing.T) {
	f := NewFile(filepath.Join(t.TempDir(), "device.yaml"))

	st, err := f.Load()
	require.NoError(t, err)
	require.Equal(t, State{}, st)
}

func TestFamilyAndUserRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "device.yaml")
	f := NewFile(path)

	require.NoError(t, f.SetFamily("The Smiths!"))
	u, err := f.SelectUser("son")
	require.NoError(t, err)
	require.Equal(t, domain.UserSon, u)

	st, err := NewFile(path).Load()
	require.NoError(t, err)
	require.Equal(t, State{FamilyID: "thesmiths", SelectedUser: domain.UserSon}, st)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "family_id: thesmiths")

	require.NoError(t, f.ClearFamily())
	st, err = f.Load()
	require.NoError(t, err)
	require.Empty(t, st.FamilyID)
	require.Equal(t, domain.UserSon, st.SelectedUser)
}

func TestSelectUserRejectsUnknown(t *testing.T) {
	f := NewFile(filepath.Join(t.TempDir(), "device.yaml"))

	_, err := f.SelectUser("Grandpa")
	require.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestSetFamilyRejectsEmptyKey(t *testing.T) {
	f := NewFile(filepath.Join(t.TempDir(), "device.yaml"))
	require.ErrorIs(t, f.SetFamily("!!!"), domain.ErrInvalidInput)
}

func TestLoadDropsUnknownUser(t *testing.T) {
	path := filepath.Join(t.TempDir(), "device.yaml")
	require.NoError(t, os.WriteFile(path, []byte("family_id: smith\nselected_user: Mom\n"), 0o644))

	st, err := NewFile(path).Load()
	require.NoError(t, err)
	require.Equal(t, "smith", st.FamilyID)
	require.Empty(t, st.SelectedUser)
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "device.yaml")
	require.NoError(t, os.WriteFile(path, []byte("family_id: [unterminated"), 0o644))

	_, err := NewFile(path).Load()
	require.Error(t, err)
}
