// Package hotness tracks how often each slab of each subdivision is queried.
package hotness

type Interface interface {
	Inc(key string)
	Score(key string) float64
	Reset(keys ...string)
}

// Sizer is implemented by trackers that can report how many keys they hold.
type Sizer interface{ Size() int }
