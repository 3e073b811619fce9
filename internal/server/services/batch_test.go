package services

import (
	"context"
	"errors"
	"testing"

	"github.com/dmitrijs2005/weldkeeper/internal/common"
	"github.com/dmitrijs2005/weldkeeper/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func batchOf(uploads ...*Upload) []Upload {
	out := make([]Upload, 0, len(uploads))
	for _, u := range uploads {
		out = append(out, *u)
	}
	return out
}

func TestBulkUpload_SkippedDuplicateIsReportedAtTheEnd(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var asked []string
	resolve := func(ctx context.Context, u Upload, existing *models.FileRecord) (bool, error) {
		asked = append(asked, u.Name+"->"+existing.Label)
		return false, nil
	}

	res, err := f.certs.BulkUpload(ctx, batchOf(
		upload("A.pdf", "a"),
		upload("B.pdf", "a"),
		upload("C.pdf", "c"),
	), resolve, nil)

	require.ErrorIs(t, err, common.ErrBatchIncomplete)
	var agg *common.BatchAggregateError
	require.ErrorAs(t, err, &agg)
	assert.Equal(t, []string{"B.pdf"}, agg.Duplicates)
	assert.Contains(t, err.Error(), "B.pdf")

	assert.Equal(t, []string{"B.pdf->A.pdf"}, asked)
	require.Len(t, res.Committed, 2)
	assert.Equal(t, "A.pdf", res.Committed[0].Name)
	assert.Equal(t, "C.pdf", res.Committed[1].Name)

	for _, item := range res.Committed {
		c, err := f.certs.Get(ctx, item.Entity.ID)
		require.NoError(t, err)
		assert.Equal(t, item.FileID, *c.FileID)
		assert.True(t, f.hasFile(item.FileID))
	}
	assert.Equal(t, "A", f.mem.certs[res.Committed[0].Entity.ID].HeatNumber)
	assert.Equal(t, 2, f.fileCount())
}

func TestBulkUpload_ResolverLinksExisting(t *testing.T) {
	f := newFixture(t)

	res, err := f.certs.BulkUpload(context.Background(), batchOf(
		upload("A.pdf", "a"),
		upload("A-again.pdf", "a"),
	), func(ctx context.Context, u Upload, existing *models.FileRecord) (bool, error) {
		return true, nil
	}, nil)

	require.NoError(t, err)
	require.Len(t, res.Committed, 2)
	assert.False(t, res.Committed[0].Linked)
	assert.True(t, res.Committed[1].Linked)
	assert.Equal(t, res.Committed[0].FileID, res.Committed[1].FileID)
	assert.Equal(t, 1, f.fileCount())
	assert.Len(t, f.mem.certs, 2)
	assert.Len(t, f.mem.links, 2)
}

func TestBulkUpload_NilResolverSkips(t *testing.T) {
	f := newFixture(t)

	res, err := f.certs.BulkUpload(context.Background(), batchOf(
		upload("A.pdf", "a"),
		upload("B.pdf", "a"),
	), nil, nil)

	var agg *common.BatchAggregateError
	require.ErrorAs(t, err, &agg)
	assert.Equal(t, []string{"B.pdf"}, agg.Duplicates)
	assert.Len(t, res.Committed, 1)
}

func TestBulkUpload_InvalidFilesDoNotStopTheBatch(t *testing.T) {
	f := newFixture(t)

	var progress []int
	res, err := f.certs.BulkUpload(context.Background(), []Upload{
		{Name: "notes.txt", Data: []byte("plain text")},
		*upload("A.pdf", "a"),
		{Name: "empty.pdf"},
	}, nil, func(done, total int, name string) {
		assert.Equal(t, 3, total)
		progress = append(progress, done)
	})

	var agg *common.BatchAggregateError
	require.ErrorAs(t, err, &agg)
	assert.Empty(t, agg.Duplicates)
	require.Len(t, agg.Invalid, 2)
	assert.Equal(t, "notes.txt", agg.Invalid[0].File)
	assert.Equal(t, "empty.pdf", agg.Invalid[1].File)
	assert.Len(t, res.Committed, 1)
	assert.Equal(t, []int{1, 2, 3}, progress)
	assert.Equal(t, 1, f.objects.puts)
}

func TestBulkUpload_AttachFailureStopsBatchKeepingEarlierFiles(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	calls := 0
	b := NewBatchUploader(f.files, f.files.log)
	res, err := b.Run(ctx, batchOf(upload("A.pdf", "a"), upload("B.pdf", "b"), upload("C.pdf", "c")),
		func(u Upload) EntityBinding {
			calls++
			c := &models.Certificate{ID: u.Name, HeatNumber: u.Name}
			binding := f.certs.newRowBinding(c)
			if calls == 2 {
				f.mem.certCreateErr = errors.New("constraint")
			}
			return binding
		}, nil, nil)

	require.ErrorIs(t, err, common.ErrPartialCreate)
	assert.Contains(t, err.Error(), "B.pdf")
	require.Len(t, res.Committed, 1)
	assert.Equal(t, "A.pdf", res.Committed[0].Name)
	assert.Equal(t, 2, calls)
	assert.Equal(t, 1, f.fileCount())
}

func TestBulkUpload_ResolverErrorAbortsBatch(t *testing.T) {
	f := newFixture(t)

	_, err := f.certs.BulkUpload(context.Background(), batchOf(upload("A.pdf", "a"), upload("B.pdf", "a")),
		func(ctx context.Context, u Upload, existing *models.FileRecord) (bool, error) {
			return false, errors.New("dialog closed")
		}, nil)

	require.Error(t, err)
	assert.NotErrorIs(t, err, common.ErrBatchIncomplete)
	assert.Contains(t, err.Error(), "dialog closed")
}

func TestBulkUpload_CancellationBetweenFiles(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	res, err := f.certs.BulkUpload(ctx, batchOf(upload("A.pdf", "a"), upload("B.pdf", "b")), nil,
		func(done, total int, name string) {
			if done == 1 {
				cancel()
			}
		})

	require.ErrorIs(t, err, context.Canceled)
	assert.Len(t, res.Committed, 1)
	assert.Equal(t, 1, f.fileCount(), "committed file is not rolled back")
}

func TestBulkUpload_Empty(t *testing.T) {
	f := newFixture(t)

	res, err := f.certs.BulkUpload(context.Background(), nil, nil, nil)
	require.NoError(t, err)
	assert.Empty(t, res.Committed)
}
