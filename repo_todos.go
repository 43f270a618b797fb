package todoapi

import (
	"context"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// TodoFilter narrows and pages a todo listing
type TodoFilter struct {
	Completed *bool
	Page      int
	PageSize  int
}

const (
	defaultTodoPageSize = 10
	maxTodoPageSize     = 100
)

func (f TodoFilter) normalize() TodoFilter {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize < 1 {
		f.PageSize = defaultTodoPageSize
	}
	if f.PageSize > maxTodoPageSize {
		f.PageSize = maxTodoPageSize
	}
	return f
}

// TodoStore is the slice of Todos the HTTP controller consumes
type TodoStore interface {
	Create(ctx context.Context, record *Todo) (*Todo, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Todo, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID, filter TodoFilter) ([]*Todo, int, error)
	Update(ctx context.Context, record *Todo) (*Todo, error)
	DeleteByID(ctx context.Context, id uuid.UUID) error
}

// Todos extends TodoStore with the transaction aware variants the
// command handlers use. The bun Repository stays an implementation
// detail of the concrete type so its method set cannot clash with the
// domain signatures here.
type Todos interface {
	TodoStore

	GetByIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*Todo, error)
	ListByOwnerTx(ctx context.Context, tx bun.IDB, ownerID uuid.UUID, filter TodoFilter) ([]*Todo, int, error)
	DeleteByIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error
}

type todos struct {
	repository.Repository[*Todo]
	db *bun.DB
}

var (
	_ Todos     = (*todos)(nil)
	_ TodoStore = (*todos)(nil)
)

func NewTodosRepository(db *bun.DB) Todos {
	repo := repository.NewRepository[*Todo](db, repository.ModelHandlers[*Todo]{
		NewRecord: func() *Todo { return &Todo{} },
		GetID: func(t *Todo) uuid.UUID {
			if t == nil {
				return uuid.Nil
			}
			return t.ID
		},
		SetID: func(t *Todo, id uuid.UUID) {
			if t != nil {
				t.ID = id
			}
		},
	})

	return &todos{
		Repository: repo,
		db:         db,
	}
}

func (a *todos) Create(ctx context.Context, record *Todo) (*Todo, error) {
	prepareTodoDefaults(record)
	return a.Repository.CreateTx(ctx, a.db, record)
}

func (a *todos) GetByID(ctx context.Context, id uuid.UUID) (*Todo, error) {
	return a.GetByIDTx(ctx, a.db, id)
}

func (a *todos) GetByIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*Todo, error) {
	record := &Todo{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"id": id.String(),
				})
		}
		return nil, err
	}

	return record, nil
}

func (a *todos) ListByOwner(ctx context.Context, ownerID uuid.UUID, filter TodoFilter) ([]*Todo, int, error) {
	return a.ListByOwnerTx(ctx, a.db, ownerID, filter)
}

func (a *todos) ListByOwnerTx(ctx context.Context, tx bun.IDB, ownerID uuid.UUID, filter TodoFilter) ([]*Todo, int, error) {
	filter = filter.normalize()

	records := []*Todo{}
	q := tx.NewSelect().
		Model(&records).
		Where("?TableAlias.user_id = ?", ownerID)

	if filter.Completed != nil {
		q = q.Where("?TableAlias.is_completed = ?", *filter.Completed)
	}

	total, err := q.
		Order("created_at DESC").
		Limit(filter.PageSize).
		Offset((filter.Page - 1) * filter.PageSize).
		ScanAndCount(ctx)

	if err != nil {
		return nil, 0, err
	}

	return records, total, nil
}

func (a *todos) Update(ctx context.Context, record *Todo) (*Todo, error) {
	now := time.Now()
	record.UpdatedAt = &now

	// NOTE: column list is explicit so false/empty values survive the
	// update instead of being dropped as zero values.
	_, err := a.db.NewUpdate().
		Model(record).
		Column("title", "description", "is_completed", "priority", "updated_at").
		WherePK().
		Exec(ctx)

	if err != nil {
		return nil, err
	}

	return a.GetByID(ctx, record.ID)
}

func (a *todos) DeleteByID(ctx context.Context, id uuid.UUID) error {
	return a.DeleteByIDTx(ctx, a.db, id)
}

func (a *todos) DeleteByIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error {
	res, err := tx.NewDelete().
		Model((*Todo)(nil)).
		Where("?TableAlias.id = ?", id).
		Exec(ctx)

	if err != nil {
		return err
	}

	if rows, err := res.RowsAffected(); err == nil && rows == 0 {
		return repository.NewRecordNotFound().
			WithMetadata(map[string]any{
				"id": id.String(),
			})
	}

	return nil
}

func prepareTodoDefaults(record *Todo) {
	if record == nil {
		return
	}

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}

	if record.Priority == "" {
		record.Priority = PriorityMedium
	}
}
