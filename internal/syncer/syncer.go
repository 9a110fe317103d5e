package syncer

import (
	"context"
	"net/url"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mojito-dev/mojito/internal/apperr"
	"github.com/mojito-dev/mojito/internal/directory"
	"github.com/mojito-dev/mojito/internal/ledger"
	"github.com/mojito-dev/mojito/internal/model"
	"github.com/mojito-dev/mojito/internal/split"
)

// Response is the aggregator's answer to one upload.
type Response struct {
	Success bool
	// TxnIDs is populated for split uploads: the group's parent id
	// followed by one id per member.
	TxnIDs []int64
}

// Uploader is the transport that delivers one upload form.
type Uploader interface {
	Update(ctx context.Context, form url.Values) (Response, error)
}

// Stats summarizes one push pass.
type Stats struct {
	Uploaded int
	Failed   int
}

// Syncer uploads dirty rows for one aggregator login at a time.
type Syncer struct {
	store      *ledger.Store
	editor     *ledger.Editor
	splits     *split.Manager
	dir        *directory.Directory
	accountIDs map[string]int64
	uploader   Uploader
	log        zerolog.Logger
}

// New creates a Syncer. accountIDs maps account names to the
// aggregator's account ids, needed when creating transactions.
func New(store *ledger.Store, editor *ledger.Editor, splits *split.Manager,
	dir *directory.Directory, accountIDs map[string]int64, uploader Uploader, log zerolog.Logger) *Syncer {
	return &Syncer{
		store:      store,
		editor:     editor,
		splits:     splits,
		dir:        dir,
		accountIDs: accountIDs,
		uploader:   uploader,
		log:        log.With().Str("component", "syncer").Logger(),
	}
}

// Push uploads every dirty row owned by mintAccount. Failed rows are
// counted and skipped so one bad row does not block the rest; an
// invariant violation aborts the whole pass.
func (s *Syncer) Push(ctx context.Context, mintAccount string) (Stats, error) {
	var stats Stats
	dirty := s.store.Dirty(mintAccount)
	if len(dirty) == 0 {
		s.log.Info().Str("mint_account", mintAccount).Msg("no transaction changes to push")
		return stats, nil
	}

	handled := make(map[uuid.UUID]bool)
	for _, t := range dirty {
		if handled[t.RowKey] || !t.IsDirty() {
			continue
		}

		if t.EditStatus.Has(model.EditSplit) {
			if err := s.pushSplitGroup(ctx, t.ParentID, handled, &stats); err != nil {
				return stats, err
			}
			// The row may still carry an edit marker; fall through.
			if !t.IsDirty() || handled[t.RowKey] {
				continue
			}
		}

		if err := s.pushRow(ctx, t, &stats); err != nil {
			return stats, err
		}
		handled[t.RowKey] = true
	}

	s.log.Info().
		Str("mint_account", mintAccount).
		Int("uploaded", stats.Uploaded).
		Int("failed", stats.Failed).
		Msg("push finished")
	return stats, nil
}

// pushSplitGroup uploads one split group wholesale and applies the
// re-id response. On success the Split marker is stripped from every
// member; members that still carry an Edit marker stay dirty for a
// follow-up edit upload.
func (s *Syncer) pushSplitGroup(ctx context.Context, parentID int64, handled map[uuid.UUID]bool, stats *Stats) error {
	group := s.store.SplitGroup(parentID)
	if len(group) == 0 {
		return apperr.Invariantf("split group %d has no members", parentID)
	}

	resp, err := s.uploader.Update(ctx, SplitForm(parentID, group))
	if err != nil || !resp.Success {
		if err != nil {
			s.log.Error().Err(err).Int64("parent_id", parentID).Msg("split upload failed")
		}
		for _, t := range group {
			handled[t.RowKey] = true
		}
		stats.Failed += len(group)
		return nil
	}

	if err := s.splits.ReconcileServerIDs(parentID, resp.TxnIDs); err != nil {
		return err
	}
	if _, err := s.splits.CollapseIfSingleton(parentID); err != nil {
		return err
	}

	for _, t := range group {
		t.EditStatus = t.EditStatus.Strip(model.EditSplit)
		if !t.IsDirty() {
			handled[t.RowKey] = true
			stats.Uploaded++
		}
	}
	return nil
}

// pushRow uploads one non-split change.
func (s *Syncer) pushRow(ctx context.Context, t *model.Transaction, stats *Stats) error {
	var form url.Values
	switch {
	case t.EditStatus.Has(model.EditDelete):
		form = DeleteForm(t)
	case t.EditStatus.Has(model.EditNew):
		var err error
		if form, err = NewForm(t, s.dir, s.accountIDs); err != nil {
			s.log.Error().Err(err).Str("merchant", t.Merchant).Msg("cannot build upload form")
			stats.Failed++
			return nil
		}
	default:
		form = EditForm(t, s.dir)
	}

	resp, err := s.uploader.Update(ctx, form)
	if err != nil {
		s.log.Error().Err(err).Str("merchant", t.Merchant).Msg("upload failed")
		stats.Failed++
		return nil
	}
	if !resp.Success {
		stats.Failed++
		return nil
	}

	if t.EditStatus.Has(model.EditNew) && len(resp.TxnIDs) == 1 {
		t.ID = resp.TxnIDs[0]
	}
	if t.EditStatus.Has(model.EditDelete) {
		if !s.store.Remove(t.RowKey) {
			return apperr.Invariantf("deleted transaction %d missing from the ledger", t.ID)
		}
	}
	s.editor.ClearStatus(t)
	stats.Uploaded++
	return nil
}

// DryRunUploader records every form it is handed and reports failure,
// so a push applies nothing. Hosts use it to preview an upload.
type DryRunUploader struct {
	Forms []url.Values
}

// Update records the form without sending it.
func (u *DryRunUploader) Update(_ context.Context, form url.Values) (Response, error) {
	u.Forms = append(u.Forms, form)
	return Response{Success: false}, nil
}
