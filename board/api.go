package board

import (
	"context"

	"aura-api/domain"
)

// API is the subset of the board REST client the synchronizer and readers use.
type API interface {
	Board(ctx context.Context, boardID string) (domain.Board, error)
	Lists(ctx context.Context, boardID string) ([]domain.List, error)
	CreateList(ctx context.Context, boardID, name string) (domain.List, error)
	ListCards(ctx context.Context, listID string) ([]domain.Card, error)
	BoardCards(ctx context.Context, boardID string) ([]domain.Card, error)
	CreateCard(ctx context.Context, listID, name string) (domain.Card, error)
	CardChecklists(ctx context.Context, cardID string) ([]domain.Checklist, error)
	BoardChecklists(ctx context.Context, boardID string) ([]domain.Checklist, error)
	CreateChecklist(ctx context.Context, cardID, name string) (domain.Checklist, error)
	CheckItems(ctx context.Context, checklistID string) ([]domain.CheckItem, error)
	CreateCheckItem(ctx context.Context, checklistID, name string) (domain.CheckItem, error)
	SetCheckItemState(ctx context.Context, cardID, itemID string, state domain.CheckItemState) (domain.CheckItem, error)
	CardComments(ctx context.Context, cardID string) ([]domain.Comment, error)
}
