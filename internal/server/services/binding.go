package services

import (
	"context"

	"github.com/dmitrijs2005/weldkeeper/internal/dbx"
	"github.com/dmitrijs2005/weldkeeper/internal/server/models"
)

// rowBinding creates the domain row on Bind and deletes it on Unbind.
type rowBinding struct {
	ref    models.EntityRef
	insert func(ctx context.Context, db dbx.DBTX, fileID string) error
	remove func(ctx context.Context, db dbx.DBTX) error
}

func (b *rowBinding) Ref() models.EntityRef { return b.ref }

func (b *rowBinding) Bind(ctx context.Context, db dbx.DBTX, fileID string) error {
	return b.insert(ctx, db, fileID)
}

func (b *rowBinding) Unbind(ctx context.Context, db dbx.DBTX) error {
	return b.remove(ctx, db)
}

// swapBinding repoints an existing row and restores prev on Unbind.
type swapBinding struct {
	ref  models.EntityRef
	prev *string
	set  func(ctx context.Context, db dbx.DBTX, fileID *string) error
}

func (b *swapBinding) Ref() models.EntityRef { return b.ref }

func (b *swapBinding) Bind(ctx context.Context, db dbx.DBTX, fileID string) error {
	return b.set(ctx, db, &fileID)
}

func (b *swapBinding) Unbind(ctx context.Context, db dbx.DBTX) error {
	return b.set(ctx, db, b.prev)
}

// finisher is implemented by bindings that have more to write once the link
// exists. Finish runs on the same DBTX as Bind.
type finisher interface {
	Finish(ctx context.Context, db dbx.DBTX) error
}

// finishingBinding adds a final write to another binding, such as marking the
// inbox entry a new row was promoted from.
type finishingBinding struct {
	EntityBinding
	finish func(ctx context.Context, db dbx.DBTX) error
}

func (b *finishingBinding) Finish(ctx context.Context, db dbx.DBTX) error {
	return b.finish(ctx, db)
}

func withFinish(b EntityBinding, finish func(ctx context.Context, db dbx.DBTX) error) EntityBinding {
	if finish == nil {
		return b
	}
	return &finishingBinding{EntityBinding: b, finish: finish}
}
