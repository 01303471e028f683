// Package department defines the Department entity: the organizational unit
// Staff and Room belong to.
package department

import "context"

type Department struct {
	ID   string
	Name string
	Code string
}

// Repository persists Department rows. Code is globally unique.
type Repository interface {
	Create(ctx context.Context, d Department) (Department, error)
	Get(ctx context.Context, id string) (Department, error)
	List(ctx context.Context) ([]Department, error)
}
