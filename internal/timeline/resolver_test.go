package timeline

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slidereel/slidereel-backend/pkg/config"
	"github.com/slidereel/slidereel-backend/pkg/db/models"
	"github.com/slidereel/slidereel-backend/pkg/enums"
	"github.com/slidereel/slidereel-backend/pkg/logger"
)

type stubArtifactFinder struct {
	artifact *models.Artifact
	err      error
}

func (s *stubArtifactFinder) FindByScope(context.Context, uuid.UUID, *uuid.UUID, enums.ArtifactKind) (*models.Artifact, error) {
	return s.artifact, s.err
}

type stubDownloadIssuer struct {
	active    *models.AccessURL
	activeErr error
	issued    *models.AccessURL
	issueErr  error
	issues    int
	touched   []uuid.UUID
}

func (s *stubDownloadIssuer) ActiveDownload(context.Context, *models.Artifact) (*models.AccessURL, error) {
	return s.active, s.activeErr
}

func (s *stubDownloadIssuer) IssueDownload(context.Context, *models.Artifact) (*models.AccessURL, error) {
	s.issues++
	return s.issued, s.issueErr
}

func (s *stubDownloadIssuer) TouchAccess(_ context.Context, id uuid.UUID) error {
	s.touched = append(s.touched, id)
	return nil
}

type stubExternalCache struct {
	cached    string
	uploaded  string
	uploadErr error
	uploads   []string
}

func (s *stubExternalCache) CachedURL(context.Context, uuid.UUID) (string, bool) {
	return s.cached, s.cached != ""
}

func (s *stubExternalCache) Upload(_ context.Context, _ uuid.UUID, sourceURL string) (string, error) {
	s.uploads = append(s.uploads, sourceURL)
	return s.uploaded, s.uploadErr
}

func completedArtifact() *models.Artifact {
	return &models.Artifact{
		ID:             uuid.New(),
		PresentationID: uuid.New(),
		Kind:           enums.ArtifactKindSlideImage,
		UploadStatus:   enums.UploadStatusCompleted,
	}
}

func newResolver(t *testing.T, finder *stubArtifactFinder, issuer *stubDownloadIssuer, external *stubExternalCache, mode string) *Resolver {
	t.Helper()
	var cacheArg externalCache
	if external != nil {
		cacheArg = external
	}
	resolver, err := NewResolver(finder, issuer, cacheArg,
		config.AssetsConfig{Mode: mode},
		logger.New(logger.Options{ServiceName: "resolver-test", Output: io.Discard}))
	require.NoError(t, err)
	return resolver
}

func TestResolveDirectReusesActiveDownload(t *testing.T) {
	activeID := uuid.New()
	issuer := &stubDownloadIssuer{active: &models.AccessURL{ID: activeID, URL: "https://signed/active"}}
	resolver := newResolver(t, &stubArtifactFinder{artifact: completedArtifact()}, issuer, nil, config.AssetModeDirect)

	url, ok := resolver.ResolveSlideAsset(context.Background(), uuid.New(), uuid.New(), enums.ArtifactKindSlideImage)
	require.True(t, ok)
	assert.Equal(t, "https://signed/active", url)
	assert.Zero(t, issuer.issues, "valid active url must not trigger a fresh signature")
	assert.Equal(t, []uuid.UUID{activeID}, issuer.touched, "reuse must count the access")
}

func TestResolveDirectIssuesWhenNoActiveURL(t *testing.T) {
	issuer := &stubDownloadIssuer{issued: &models.AccessURL{URL: "https://signed/fresh"}}
	resolver := newResolver(t, &stubArtifactFinder{artifact: completedArtifact()}, issuer, nil, config.AssetModeDirect)

	url, ok := resolver.ResolvePresentationAsset(context.Background(), uuid.New(), enums.ArtifactKindIntroVideo)
	require.True(t, ok)
	assert.Equal(t, "https://signed/fresh", url)
	assert.Equal(t, 1, issuer.issues)
	assert.Empty(t, issuer.touched, "a freshly issued url has no access to count")
}

func TestResolveMissWhenArtifactNotPublished(t *testing.T) {
	pending := completedArtifact()
	pending.UploadStatus = enums.UploadStatusPending

	cases := []struct {
		name   string
		finder *stubArtifactFinder
	}{
		{"no artifact", &stubArtifactFinder{}},
		{"pending artifact", &stubArtifactFinder{artifact: pending}},
		{"lookup failure", &stubArtifactFinder{err: errors.New("db down")}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			issuer := &stubDownloadIssuer{issued: &models.AccessURL{URL: "https://signed/fresh"}}
			resolver := newResolver(t, tc.finder, issuer, nil, config.AssetModeDirect)

			_, ok := resolver.ResolveSlideAsset(context.Background(), uuid.New(), uuid.New(), enums.ArtifactKindSlideAudio)
			assert.False(t, ok)
			assert.Zero(t, issuer.issues)
		})
	}
}

func TestResolveExternalModePrefersCachedCopy(t *testing.T) {
	issuer := &stubDownloadIssuer{issued: &models.AccessURL{URL: "https://signed/fresh"}}
	external := &stubExternalCache{cached: "https://provider/cached.mp4"}
	resolver := newResolver(t, &stubArtifactFinder{artifact: completedArtifact()}, issuer, external, config.AssetModeExternalUpload)

	url, ok := resolver.ResolveSlideAsset(context.Background(), uuid.New(), uuid.New(), enums.ArtifactKindSlideAvatarVideo)
	require.True(t, ok)
	assert.Equal(t, "https://provider/cached.mp4", url)
	assert.Zero(t, issuer.issues, "cache hit must not reach the signer")
	assert.Empty(t, external.uploads)
}

func TestResolveExternalModeRehostsOnCacheMiss(t *testing.T) {
	issuer := &stubDownloadIssuer{issued: &models.AccessURL{URL: "https://signed/fresh"}}
	external := &stubExternalCache{uploaded: "https://provider/rehosted.mp4"}
	resolver := newResolver(t, &stubArtifactFinder{artifact: completedArtifact()}, issuer, external, config.AssetModeExternalUpload)

	url, ok := resolver.ResolveSlideAsset(context.Background(), uuid.New(), uuid.New(), enums.ArtifactKindSlideAvatarVideo)
	require.True(t, ok)
	assert.Equal(t, "https://provider/rehosted.mp4", url)
	require.Len(t, external.uploads, 1)
	assert.Equal(t, "https://signed/fresh", external.uploads[0], "re-host must ingest the presigned copy")
}

func TestResolveExternalModeFallsBackOnRehostFailure(t *testing.T) {
	issuer := &stubDownloadIssuer{issued: &models.AccessURL{URL: "https://signed/fresh"}}
	external := &stubExternalCache{uploadErr: errors.New("ingest unavailable")}
	resolver := newResolver(t, &stubArtifactFinder{artifact: completedArtifact()}, issuer, external, config.AssetModeExternalUpload)

	url, ok := resolver.ResolveSlideAsset(context.Background(), uuid.New(), uuid.New(), enums.ArtifactKindSlideImage)
	require.True(t, ok)
	assert.Equal(t, "https://signed/fresh", url)
}

func TestNewResolverRequiresExternalCacheInUploadMode(t *testing.T) {
	_, err := NewResolver(&stubArtifactFinder{}, &stubDownloadIssuer{}, nil,
		config.AssetsConfig{Mode: config.AssetModeExternalUpload},
		logger.New(logger.Options{ServiceName: "resolver-test", Output: io.Discard}))
	require.Error(t, err)
}
