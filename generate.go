package spacetraveling

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/eringen/spacetraveling/prismic"
)

const revalidateTimeout = 5 * time.Minute

// GenerateResult summarizes one snapshot generation.
type GenerateResult struct {
	Ref       string
	Documents int
	Skipped   int
	Banners   int
}

type masterRefer interface {
	MasterRef(ctx context.Context) (string, error)
}

// Generate copies every published post from the CMS into the snapshot store
// and pre-renders their banners. Documents that fail validation are logged
// and left out so one broken post never blocks the rest.
func (a *App) Generate(ctx context.Context) (GenerateResult, error) {
	var res GenerateResult
	if a.CMS == nil {
		return res, errors.New("spacetraveling: generate needs an APIEndpoint")
	}
	if mr, ok := a.CMS.(masterRefer); ok {
		ref, err := mr.MasterRef(ctx)
		if err != nil {
			return res, fmt.Errorf("spacetraveling: generate: %w", err)
		}
		res.Ref = ref
	}

	docs, err := a.fetchDocuments(ctx, res.Ref)
	if err != nil {
		return res, fmt.Errorf("spacetraveling: generate: %w", err)
	}

	type bannerJob struct{ uid, url string }
	var (
		keep    []prismic.Document
		uids    []string
		banners []bannerJob
	)
	for _, doc := range docs {
		detail, err := a.Projector.Detail(doc)
		if err != nil {
			a.Echo.Logger.Warnf("generate: skipping document %s: %v", doc.ID, err)
			res.Skipped++
			continue
		}
		keep = append(keep, doc)
		uids = append(uids, detail.UID)
		if detail.BannerURL != "" {
			banners = append(banners, bannerJob{detail.UID, detail.BannerURL})
		}
	}

	if err := a.Store.ReplaceDocuments(ctx, a.Config.DocumentType, res.Ref, keep); err != nil {
		return res, fmt.Errorf("spacetraveling: generate: store documents: %w", err)
	}
	res.Documents = len(keep)

	for _, job := range banners {
		if _, err := a.banner(ctx, job.uid, job.url); err != nil {
			a.Echo.Logger.Warnf("generate: banner %s: %v", job.uid, err)
			continue
		}
		res.Banners++
	}
	if err := a.Store.DeleteBannersExcept(ctx, uids); err != nil {
		a.Echo.Logger.Warnf("generate: prune banners: %v", err)
	}
	return res, nil
}

// fetchDocuments reads every full document of the post type, oldest first.
func (a *App) fetchDocuments(ctx context.Context, ref string) ([]prismic.Document, error) {
	resp, err := a.CMS.Query(ctx, prismic.Query{
		Type:      a.Config.DocumentType,
		PageSize:  maxPageSize,
		Orderings: prismic.OrderOldestFirst,
		Ref:       ref,
	})
	if err != nil {
		return nil, err
	}
	docs := resp.Results
	seen := map[string]bool{}
	for n := 0; resp.NextPage != "" && n < maxListingPages; n++ {
		if seen[resp.NextPage] {
			break
		}
		seen[resp.NextPage] = true
		if resp, err = a.CMS.FetchPage(ctx, resp.NextPage); err != nil {
			return nil, err
		}
		docs = append(docs, resp.Results...)
	}
	return docs, nil
}

// StartRevalidation regenerates the snapshot on a cron schedule such as
// "@every 24h". An empty snapshot is generated right away.
func (a *App) StartRevalidation(schedule string) error {
	if _, err := a.Store.LastSnapshot(context.Background()); errors.Is(err, sql.ErrNoRows) {
		a.revalidate()
	}

	c := cron.New()
	if _, err := c.AddFunc(schedule, a.revalidate); err != nil {
		return fmt.Errorf("spacetraveling: schedule revalidation: %w", err)
	}
	if a.cron != nil {
		a.cron.Stop()
	}
	a.cron = c
	a.cron.Start()
	a.Echo.Logger.Infof("snapshot revalidation scheduled: %s", schedule)
	return nil
}

func (a *App) revalidate() {
	if !a.revalidating.CompareAndSwap(false, true) {
		a.Echo.Logger.Warnf("revalidation skipped: previous run still in progress")
		return
	}
	defer a.revalidating.Store(false)

	ctx, cancel := context.WithTimeout(context.Background(), revalidateTimeout)
	defer cancel()
	res, err := a.Generate(ctx)
	if err != nil {
		a.Echo.Logger.Errorf("revalidation failed: %v", err)
		return
	}
	a.Cache.Invalidate()
	a.Echo.Logger.Infof("snapshot revalidated: %d posts, %d skipped, %d banners (ref %s)",
		res.Documents, res.Skipped, res.Banners, res.Ref)
}
