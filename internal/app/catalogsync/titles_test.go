package catalogsync

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/g33ktony/hot-wheels-manager-sub006/internal/domain"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestReadTitles(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    []domain.PageTitle
		wantErr bool
	}{
		{
			name:    "one per line",
			content: "Twin Mill\n\n# comment\n  Bone Shaker  \n",
			want:    []domain.PageTitle{"Twin Mill", "Bone Shaker"},
		},
		{
			name:    "json array",
			content: ` ["Twin Mill", "Deora II"]`,
			want:    []domain.PageTitle{"Twin Mill", "Deora II"},
		},
		{
			name:    "broken json",
			content: `["Twin Mill",`,
			wantErr: true,
		},
		{
			name:    "empty file",
			content: "",
			want:    nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ReadTitles(writeFile(t, "titles.txt", tt.content))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReadTitles_MissingFile(t *testing.T) {
	_, err := ReadTitles(filepath.Join(t.TempDir(), "nope.txt"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

type mockLister struct {
	members map[string][]domain.PageTitle
	err     error
	calls   []string
}

func (m *mockLister) CategoryMembers(_ context.Context, category string) ([]domain.PageTitle, error) {
	m.calls = append(m.calls, category)
	if m.err != nil {
		return nil, m.err
	}
	return m.members[category], nil
}

func TestBuildUniverse(t *testing.T) {
	lister := &mockLister{members: map[string][]domain.PageTitle{
		"2024 Hot Wheels": {"Twin Mill", "Deora_II", "bone Shaker"},
		"Mainline":        {"Deora II", "Rodger Dodger"},
	}}

	got, err := BuildUniverse(context.Background(), testLogger(), lister,
		[]domain.PageTitle{"Bone Shaker", "  ", "Twin Mill"},
		[]string{"2024 Hot Wheels", " ", "Mainline"},
	)
	require.NoError(t, err)
	assert.Equal(t, []domain.PageTitle{"Bone Shaker", "Twin Mill", "Deora II", "Rodger Dodger"}, got)
	assert.Equal(t, []string{"2024 Hot Wheels", "Mainline"}, lister.calls)
}

func TestBuildUniverse_ListerError(t *testing.T) {
	lister := &mockLister{err: errors.New("boom")}
	_, err := BuildUniverse(context.Background(), testLogger(), lister, nil, []string{"Mainline"})
	assert.ErrorContains(t, err, "Mainline")
}

func TestBuildUniverse_CategoryWithoutLister(t *testing.T) {
	_, err := BuildUniverse(context.Background(), testLogger(), nil, nil, []string{"Mainline"})
	assert.Error(t, err)
}
