package vfs

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// TreeResult summarizes a recursive tree operation: every leaf Operation that ran, in completion order, plus the
// first hard error encountered (under BatchContinueOnError, every file-copy failure combined with Aggregate).
type TreeResult struct {
	Operations []Operation
	Err        error
}

// planEntry pairs a resolved source/destination path with whether it names a directory, gathered up front so the
// fan-out stage below doesn't need to re-resolve the tree while it is being copied out from under it.
type planEntry struct {
	srcPath Path
	dstPath Path
	isDir   bool
}

// walkTree lists src recursively under fs, in parent-before-children order, so a directory's CreateDirectory Operation
// always runs before any of its children's.
func walkTree(fs FileSystem, src, dst Path) ([]planEntry, error) {
	entry, err := fs.GetEntry(src, Option{})
	if err != nil {
		return nil, err
	}
	if !entry.IsDir() {
		return []planEntry{{srcPath: src, dstPath: dst, isDir: false}}, nil
	}
	out := []planEntry{{srcPath: src, dstPath: dst, isDir: true}}
	content, err := fs.Browse(src, Option{})
	if err != nil {
		return nil, err
	}
	for _, child := range content.Children {
		name := child.Name()
		childEntries, err := walkTree(fs, src.Child(name), dst.Child(name))
		if err != nil {
			return nil, err
		}
		out = append(out, childEntries...)
	}
	return out, nil
}

// CopyTree recursively copies src to dst, within a single FileSystem or across two (srcFS/dstFS may be the same
// value). Directories are created before their children are copied; files are copied concurrently, bounded by
// concurrency, and every leaf runs through the session's OperationSession for cancellation and progress.
func CopyTree(ctx context.Context, session *OperationSession, srcFS FileSystem, src Path, dstFS FileSystem, dst Path, concurrency int) (*TreeResult, error) {
	plan, err := walkTree(srcFS, src, dst)
	if err != nil {
		return nil, err
	}
	if concurrency < 1 {
		concurrency = 1
	}

	result := &TreeResult{}
	for _, entry := range plan {
		if entry.isDir {
			op := NewCreateDirectoryOperation(session, dstFS, entry.dstPath)
			if err := runLeaf(ctx, op); err != nil && !session.policy.BatchContinueOnError {
				result.Err = err
				return result, err
			}
			result.Operations = append(result.Operations, op)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	opsCh := make(chan Operation, len(plan))
	var aggregated error
	for _, entry := range plan {
		if entry.isDir {
			continue
		}
		entry := entry
		g.Go(func() error {
			op := NewCopyFileOperation(session, srcFS, entry.srcPath, dstFS, entry.dstPath)
			err := runLeaf(gctx, op)
			opsCh <- op
			if err != nil && !session.policy.BatchContinueOnError {
				return err
			}
			if err != nil {
				aggregated = Aggregate(aggregated, err)
			}
			return nil
		})
	}
	err = g.Wait()
	close(opsCh)
	for op := range opsCh {
		result.Operations = append(result.Operations, op)
	}
	if err != nil {
		result.Err = err
		return result, err
	}
	if aggregated != nil {
		result.Err = aggregated
		return result, aggregated
	}
	return result, nil
}

// MoveTree relocates src to dst. When srcFS == dstFS it delegates to a single MoveOperation (atomic within that
// backend); otherwise it falls back to CopyTree followed by a recursive delete of src, the cross-filesystem
// Move behavior VirtualFileSystem.move defers to this package.
func MoveTree(ctx context.Context, session *OperationSession, srcFS FileSystem, src Path, dstFS FileSystem, dst Path) (*TreeResult, error) {
	if srcFS == dstFS {
		op := NewMoveOperation(session, srcFS, src, dst)
		err := runLeaf(ctx, op)
		return &TreeResult{Operations: []Operation{op}}, err
	}
	result, err := CopyTree(ctx, session, srcFS, src, dstFS, dst, 4)
	if err != nil {
		return result, err
	}
	plan, err := walkTree(srcFS, src, dst)
	if err != nil {
		result.Err = err
		return result, err
	}
	// walkTree lists parents first, so walking it backwards deletes every child before its directory.
	for i := len(plan) - 1; i >= 0; i-- {
		delOp := NewDeleteOperation(session, srcFS, plan[i].srcPath)
		if err := runLeaf(ctx, delOp); err != nil {
			// the copy already succeeded; report the delete failure but keep the copy's operations so a caller can
			// still inspect or roll them back.
			result.Operations = append(result.Operations, delOp)
			result.Err = err
			return result, err
		}
		result.Operations = append(result.Operations, delOp)
	}
	return result, nil
}

// TransferTree is a terminology-neutral alias for CopyTree for callers that think in terms of "transfer" rather
// than "copy" (e.g. a package loader importing content into a fresh mount).
func TransferTree(ctx context.Context, session *OperationSession, srcFS FileSystem, src Path, dstFS FileSystem, dst Path, concurrency int) (*TreeResult, error) {
	return CopyTree(ctx, session, srcFS, src, dstFS, dst, concurrency)
}

func runLeaf(ctx context.Context, op Operation) error {
	if err := op.Estimate(ctx); err != nil {
		return err
	}
	return op.Run(ctx)
}
