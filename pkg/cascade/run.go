package cascade

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/marmos91/dittodrive/internal/logger"
	"github.com/marmos91/dittodrive/pkg/metadata"
	"golang.org/x/sync/errgroup"
)

var errDepthExceeded = errors.New("maximum folder depth exceeded")

// run is the state of a single cascade invocation.
type run struct {
	engine    *Engine
	mode      Mode
	ownerID   string
	deletedAt time.Time
	result    *Result

	mu sync.Mutex

	// parentOf maps every entity reached by the run to its parent.
	parentOf map[string]string

	// seen holds folders already enumerated, guarding against cycles.
	seen map[string]struct{}

	// blocked holds folders that must survive a purge.
	blocked map[string]struct{}

	// folders holds, per depth, the folders a purge deletes afterwards.
	folders [][]*metadata.Entity
}

func (r *run) transition(to State) {
	if r.result.State == to {
		return
	}
	logger.Debug("Cascade %s: %s -> %s", r.result.RunID, r.result.State, to)
	r.result.State = to
}

func (r *run) pool() *errgroup.Group {
	g := &errgroup.Group{}
	g.SetLimit(r.engine.concurrency)
	return g
}

func (r *run) execute(ctx context.Context) {
	frontier := []string{r.result.RootID}
	maxDepth := r.engine.resolver.MaxDepth()

	for depth := 0; len(frontier) > 0; depth++ {
		if depth >= maxDepth {
			for _, id := range frontier {
				r.fail(id, "enumerate", errDepthExceeded)
			}
			break
		}

		// ===== Enumerate the level =====
		r.transition(StateEnumerating)
		children := r.enumerate(ctx, frontier)
		r.result.Levels++

		// ===== Dispatch the level =====
		r.transition(StateDispatching)
		frontier = r.dispatch(ctx, children)
	}

	if r.mode == ModePurge {
		r.removeFolders(ctx)
		r.result.Retained = r.retained()
	}

	if len(r.result.Failures) > 0 {
		r.transition(StatePartiallyFailed)
	} else {
		r.transition(StateCompleted)
	}
}

// enumerate lists the children of every frontier folder concurrently.
func (r *run) enumerate(ctx context.Context, frontier []string) []*metadata.Entity {
	var (
		mu       sync.Mutex
		children []*metadata.Entity
	)

	g := r.pool()
	for _, folderID := range frontier {
		g.Go(func() error {
			if err := r.engine.limiter.Wait(ctx); err != nil {
				r.fail(folderID, "enumerate", err)
				return nil
			}

			kids, err := r.engine.resolver.ResolveSubtree(ctx, folderID, r.ownerID)
			if err != nil {
				r.fail(folderID, "enumerate", err)
				return nil
			}

			mu.Lock()
			children = append(children, kids...)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	// Goroutines finish in any order; keep the level deterministic.
	metadata.SortEntities(children, metadata.OrderNone)
	return children
}

// dispatch runs the level's operations and returns the next frontier.
func (r *run) dispatch(ctx context.Context, children []*metadata.Entity) []string {
	var next []string
	var levelFolders []*metadata.Entity

	r.mu.Lock()
	for _, child := range children {
		r.parentOf[child.ID] = child.ParentID
		if !child.IsFolder() {
			continue
		}
		if _, dup := r.seen[child.ID]; dup {
			logger.Warn("Cascade %s: folder %s reached twice, parent chain is cyclic", r.result.RunID, child.ID)
			continue
		}
		r.seen[child.ID] = struct{}{}
		next = append(next, child.ID)
		levelFolders = append(levelFolders, child)
	}
	r.mu.Unlock()

	if r.mode == ModePurge {
		r.folders = append(r.folders, levelFolders)
	}

	g := r.pool()
	for _, child := range children {
		switch {
		case r.mode == ModeTrash:
			if child.InTrash {
				continue
			}
			r.result.Visited++
			g.Go(func() error {
				r.trashEntity(ctx, child)
				return nil
			})
		case !child.IsFolder():
			r.result.Visited++
			g.Go(func() error {
				r.purgeFile(ctx, child)
				return nil
			})
		}
	}
	_ = g.Wait()

	return next
}

func (r *run) trashEntity(ctx context.Context, e *metadata.Entity) {
	if err := r.engine.limiter.Wait(ctx); err != nil {
		r.fail(e.ID, "trash", err)
		return
	}

	patch := metadata.Patch{
		InTrash:   metadata.Bool(true),
		DeletedAt: metadata.Time(r.deletedAt),
		UpdatedAt: r.deletedAt,
	}
	if err := r.engine.store.Update(ctx, e.ID, patch); err != nil {
		if metadata.IsNotFound(err) {
			return
		}
		r.fail(e.ID, "trash", err)
		return
	}

	updated := e.Clone()
	patch.Apply(updated)
	r.engine.notify(func(l Listener) { l.EntityTrashed(updated) })
}

func (r *run) purgeFile(ctx context.Context, e *metadata.Entity) {
	if err := r.engine.limiter.Wait(ctx); err != nil {
		r.fail(e.ID, "delete", err)
		return
	}

	r.engine.removeBlob(ctx, e)

	if err := r.engine.store.Delete(ctx, e.ID); err != nil {
		if metadata.IsNotFound(err) {
			return
		}
		r.fail(e.ID, "delete", err)
		return
	}
	r.engine.notify(func(l Listener) { l.EntityDeleted(e) })
}

// removeFolders deletes purged folders, deepest level first. A folder is
// skipped when anything beneath it failed.
func (r *run) removeFolders(ctx context.Context) {
	for depth := len(r.folders) - 1; depth >= 0; depth-- {
		g := r.pool()
		for _, folder := range r.folders[depth] {
			if r.isBlocked(folder.ID) {
				continue
			}
			r.result.Visited++
			g.Go(func() error {
				if err := r.engine.limiter.Wait(ctx); err != nil {
					r.fail(folder.ID, "delete", err)
					return nil
				}
				if err := r.engine.store.Delete(ctx, folder.ID); err != nil && !metadata.IsNotFound(err) {
					r.fail(folder.ID, "delete", err)
					return nil
				}
				r.engine.notify(func(l Listener) { l.EntityDeleted(folder) })
				return nil
			})
		}
		_ = g.Wait()
	}
}

// fail records a failed operation and blocks id together with its chain of
// in-run ancestors.
func (r *run) fail(id, op string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.result.Failures = append(r.result.Failures, metadata.Failure{
		ID:  id,
		Op:  op,
		Err: metadata.NewUpstreamError(op+" "+id, err),
	})

	for cur := id; cur != ""; cur = r.parentOf[cur] {
		if _, done := r.blocked[cur]; done {
			break
		}
		r.blocked[cur] = struct{}{}
		if cur == r.result.RootID {
			break
		}
	}
}

func (r *run) isBlocked(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.blocked[id]
	return ok
}

// retained returns the blocked folders, sorted.
func (r *run) retained() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var ids []string
	if _, ok := r.blocked[r.result.RootID]; ok {
		ids = append(ids, r.result.RootID)
	}
	for _, level := range r.folders {
		for _, f := range level {
			if _, ok := r.blocked[f.ID]; ok {
				ids = append(ids, f.ID)
			}
		}
	}
	sort.Strings(ids)
	return ids
}
