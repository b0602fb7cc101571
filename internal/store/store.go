// Package store defines persistence for subdivision documents.
package store

import (
	"context"
	"errors"

	"github.com/AbdulRahmanNour1/Point-Location-and-Trapezoidal-Method-Slab-Method/internal/subdivision"
)

var (
	ErrNotFound = errors.New("subdivision not found")
	// ErrUndecodable marks stored documents that List could not decode, for
	// example ones written by a newer build with extra fields. List still
	// returns every document it could read alongside such an error.
	ErrUndecodable = errors.New("undecodable stored document")
)

type Interface interface {
	Put(ctx context.Context, doc subdivision.Document) error
	Delete(ctx context.Context, name string) error
	List(ctx context.Context) ([]subdivision.Document, error)
	Close() error
}

type Driver string

const (
	DriverNone     Driver = "none"
	DriverRedis    Driver = "redis"
	DriverPostgres Driver = "postgres"
)
