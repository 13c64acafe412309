// Package library keeps the recipe catalog in step with a directory of
// recipe files.
//
// Every top-level .md file in the library is imported once; a ledger of
// path and checksum lets later passes skip unchanged files and route edits
// to the recipe the file created. Files that cannot be parsed or fail
// validation are moved to the rejected/ subdirectory.
package library

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/starford/recipebox/internal/apperr"
	"github.com/starford/recipebox/internal/checksum"
	"github.com/starford/recipebox/internal/models"
	"github.com/starford/recipebox/internal/recipefile"
	"github.com/starford/recipebox/internal/recipeservice"
	"github.com/starford/recipebox/internal/storage"
	"github.com/starford/recipebox/internal/store"
)

// RejectedDir receives files that could not be imported.
const RejectedDir = "rejected"

// Outcome describes what ImportFile did with a file.
type Outcome string

// Import outcomes.
const (
	OutcomeImported  Outcome = "imported"
	OutcomeUpdated   Outcome = "updated"
	OutcomeUnchanged Outcome = "unchanged"
	OutcomeRenamed   Outcome = "renamed"
	OutcomeRejected  Outcome = "rejected"
)

// SyncResult counts the outcomes of one Sync pass.
type SyncResult struct {
	Imported  int `json:"imported"`
	Updated   int `json:"updated"`
	Unchanged int `json:"unchanged"`
	Renamed   int `json:"renamed"`
	Rejected  int `json:"rejected"`
	Forgotten int `json:"forgotten"`
	Failed    int `json:"failed"`
}

func (r *SyncResult) add(o Outcome) {
	switch o {
	case OutcomeImported:
		r.Imported++
	case OutcomeUpdated:
		r.Updated++
	case OutcomeUnchanged:
		r.Unchanged++
	case OutcomeRenamed:
		r.Renamed++
	case OutcomeRejected:
		r.Rejected++
	}
}

// Library imports recipe files through the recipe service.
type Library struct {
	files    storage.Provider
	ledger   store.RecipeStore
	svc      *recipeservice.Service
	logger   *slog.Logger
	debounce time.Duration
}

// New creates a Library over files. ledger records what has been imported;
// svc creates and updates the recipes.
func New(files storage.Provider, ledger store.RecipeStore, svc *recipeservice.Service, logger *slog.Logger) *Library {
	if logger == nil {
		logger = slog.Default()
	}
	return &Library{
		files:    files,
		ledger:   ledger,
		svc:      svc,
		logger:   logger,
		debounce: 200 * time.Millisecond,
	}
}

// Sync imports every new or changed file and forgets ledger entries whose
// file is gone. Recipes are never deleted by a sync.
func (l *Library) Sync(ctx context.Context) (SyncResult, error) {
	var res SyncResult

	files, err := l.files.List()
	if err != nil {
		return res, err
	}

	onDisk := make(map[string]struct{}, len(files))
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		onDisk[f.Path] = struct{}{}

		outcome, err := l.ImportFile(ctx, f.Path)
		if err != nil {
			res.Failed++
			l.logger.Warn("library: import failed", slog.String("path", f.Path), slog.String("error", err.Error()))
			continue
		}
		res.add(outcome)
	}

	ledger, err := l.ledger.AllImports(ctx)
	if err != nil {
		return res, err
	}
	for p := range ledger {
		if _, ok := onDisk[p]; ok {
			continue
		}
		if err := l.ledger.ForgetImport(ctx, p); err != nil {
			l.logger.Warn("library: forget failed", slog.String("path", p), slog.String("error", err.Error()))
			continue
		}
		res.Forgotten++
		l.logger.Debug("library: forgot missing file", slog.String("path", p))
	}

	return res, nil
}

// ImportFile brings one library file into the catalog.
func (l *Library) ImportFile(ctx context.Context, p string) (Outcome, error) {
	data, err := l.files.Read(p)
	if err != nil {
		return "", err
	}
	sum := checksum.Sum(data)

	rec, err := l.ledger.GetImport(ctx, p)
	if err != nil {
		return "", err
	}
	if rec != nil && rec.Checksum == sum {
		return OutcomeUnchanged, nil
	}

	if rec == nil {
		orphan, err := l.renamedFrom(ctx, sum)
		if err != nil {
			return "", err
		}
		if orphan != nil {
			if err := l.ledger.ForgetImport(ctx, orphan.Path); err != nil {
				return "", err
			}
			if err := l.ledger.RecordImport(ctx, store.ImportRecord{Path: p, Checksum: sum, RecipeID: orphan.RecipeID}); err != nil {
				return "", err
			}
			l.logger.Debug("library: file renamed", slog.String("from", orphan.Path), slog.String("to", p))
			return OutcomeRenamed, nil
		}
	}

	doc, err := recipefile.Parse(data)
	if err != nil {
		return l.reject(ctx, p, err)
	}

	var (
		recipe  *models.Recipe
		outcome = OutcomeImported
	)
	if rec != nil {
		recipe, err = l.svc.Update(ctx, rec.RecipeID, doc.Input())
		if errors.Is(err, apperr.ErrNotFound) {
			// deleted through the API since the last import
			rec = nil
		} else {
			outcome = OutcomeUpdated
		}
	}
	if rec == nil {
		recipe, err = l.svc.Create(ctx, doc.Input())
		outcome = OutcomeImported
	}
	if errors.Is(err, apperr.ErrInvalidInput) {
		return l.reject(ctx, p, err)
	}
	if err != nil {
		return "", err
	}

	if err := l.ledger.RecordImport(ctx, store.ImportRecord{Path: p, Checksum: sum, RecipeID: recipe.ID}); err != nil {
		return "", err
	}
	l.logger.Info("library: "+string(outcome),
		slog.String("path", p),
		slog.Int64("recipe_id", recipe.ID))
	return outcome, nil
}

// Export writes every recipe in svc to dst as "<id>-<slug>.md" and returns
// the number of files written.
func Export(ctx context.Context, svc *recipeservice.Service, dst storage.Provider) (int, error) {
	recipes, err := svc.List(ctx, 0)
	if err != nil {
		return 0, err
	}
	for i := range recipes {
		r := &recipes[i]
		data, err := recipefile.Render(r)
		if err != nil {
			return i, err
		}
		if err := dst.Write(recipefile.FileName(r), data); err != nil {
			return i, err
		}
	}
	return len(recipes), nil
}

// renamedFrom finds a ledger entry with the given checksum whose file no
// longer exists.
func (l *Library) renamedFrom(ctx context.Context, sum string) (*store.ImportRecord, error) {
	all, err := l.ledger.AllImports(ctx)
	if err != nil {
		return nil, err
	}
	for _, rec := range all {
		if rec.Checksum != sum {
			continue
		}
		if _, err := l.files.Read(rec.Path); errors.Is(err, fs.ErrNotExist) {
			return &rec, nil
		}
	}
	return nil, nil
}

func (l *Library) reject(ctx context.Context, p string, cause error) (Outcome, error) {
	l.logger.Warn("library: rejected file", slog.String("path", p), slog.String("error", cause.Error()))

	if err := l.ledger.ForgetImport(ctx, p); err != nil {
		return "", err
	}
	target := path.Join(RejectedDir, p)
	if _, err := l.files.Read(target); err == nil {
		ext := path.Ext(p)
		target = path.Join(RejectedDir, fmt.Sprintf("%s-%d%s", strings.TrimSuffix(p, ext), time.Now().UnixNano(), ext))
	}
	if err := l.files.Move(p, target); err != nil {
		return "", err
	}
	return OutcomeRejected, nil
}
