package timeline

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/slidereel/slidereel-backend/pkg/config"
	"github.com/slidereel/slidereel-backend/pkg/db/models"
	"github.com/slidereel/slidereel-backend/pkg/enums"
	"github.com/slidereel/slidereel-backend/pkg/logger"
)

type artifactFinder interface {
	FindByScope(ctx context.Context, presentationID uuid.UUID, slideID *uuid.UUID, kind enums.ArtifactKind) (*models.Artifact, error)
}

type downloadIssuer interface {
	ActiveDownload(ctx context.Context, artifact *models.Artifact) (*models.AccessURL, error)
	IssueDownload(ctx context.Context, artifact *models.Artifact) (*models.AccessURL, error)
	TouchAccess(ctx context.Context, id uuid.UUID) error
}

type externalCache interface {
	CachedURL(ctx context.Context, artifactID uuid.UUID) (string, bool)
	Upload(ctx context.Context, artifactID uuid.UUID, sourceURL string) (string, error)
}

// Resolver turns a published artifact into a clip URL. In direct mode it
// serves presigned download URLs, reusing the active one when still valid.
// In external-upload mode it prefers the provider-cached copy and re-hosts
// on a cache miss, falling back to the presigned URL if re-hosting fails.
type Resolver struct {
	artifacts artifactFinder
	issuer    downloadIssuer
	external  externalCache
	rehost    bool
	logg      *logger.Logger
}

// NewResolver constructs the asset URL resolver. The external cache may be
// nil when the service runs in direct mode.
func NewResolver(artifacts artifactFinder, issuer downloadIssuer, external externalCache, cfg config.AssetsConfig, logg *logger.Logger) (*Resolver, error) {
	if artifacts == nil {
		return nil, fmt.Errorf("artifact finder required")
	}
	if issuer == nil {
		return nil, fmt.Errorf("download issuer required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	rehost := cfg.ExternalUploadEnabled()
	if rehost && external == nil {
		return nil, fmt.Errorf("external cache required in %s mode", config.AssetModeExternalUpload)
	}
	return &Resolver{
		artifacts: artifacts,
		issuer:    issuer,
		external:  external,
		rehost:    rehost,
		logg:      logg,
	}, nil
}

// ResolveSlideAsset resolves the URL for a slide-scoped artifact. A miss
// means no completed artifact exists or no URL could be produced.
func (r *Resolver) ResolveSlideAsset(ctx context.Context, presentationID, slideID uuid.UUID, kind enums.ArtifactKind) (string, bool) {
	return r.resolve(ctx, presentationID, &slideID, kind)
}

// ResolvePresentationAsset resolves the URL for a presentation-scoped artifact.
func (r *Resolver) ResolvePresentationAsset(ctx context.Context, presentationID uuid.UUID, kind enums.ArtifactKind) (string, bool) {
	return r.resolve(ctx, presentationID, nil, kind)
}

func (r *Resolver) resolve(ctx context.Context, presentationID uuid.UUID, slideID *uuid.UUID, kind enums.ArtifactKind) (string, bool) {
	artifact, err := r.artifacts.FindByScope(ctx, presentationID, slideID, kind)
	if err != nil {
		r.logg.Warn(ctx, "artifact lookup failed for "+kind.String()+": "+err.Error())
		return "", false
	}
	if artifact == nil || !artifact.IsCompleted() {
		return "", false
	}

	if r.rehost {
		if cached, ok := r.external.CachedURL(ctx, artifact.ID); ok {
			return cached, true
		}
	}

	download, ok := r.downloadURL(ctx, artifact)
	if !ok {
		return "", false
	}

	if r.rehost {
		rehosted, err := r.external.Upload(ctx, artifact.ID, download)
		if err != nil {
			r.logg.Warn(ctx, "asset re-host failed, serving presigned url: "+err.Error())
			return download, true
		}
		return rehosted, true
	}
	return download, true
}

func (r *Resolver) downloadURL(ctx context.Context, artifact *models.Artifact) (string, bool) {
	active, err := r.issuer.ActiveDownload(ctx, artifact)
	if err != nil {
		r.logg.Warn(ctx, "active download lookup failed: "+err.Error())
	} else if active != nil {
		if err := r.issuer.TouchAccess(ctx, active.ID); err != nil {
			r.logg.Warn(ctx, "touch access count failed: "+err.Error())
		}
		return active.URL, true
	}

	issued, err := r.issuer.IssueDownload(ctx, artifact)
	if err != nil {
		r.logg.Warn(ctx, "download url issue failed: "+err.Error())
		return "", false
	}
	return issued.URL, true
}
