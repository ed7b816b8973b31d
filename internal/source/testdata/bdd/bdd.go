package bdd

import (
	"time"
)

// When starts a step of a scenario.
//
// +fluent:keyword
// +fluent:alias=Given
// +fluent:alias=and
type When struct{}

// +fluent:constant
type Order struct{}

// +fluent:nested
type Dsl struct{}

// +fluent:keyword
// +fluent:constant
type Broken struct{}

// Check verifies a value.
type Check[T any] func(T) bool

// Automation drives the trading system under test.
//
// +fluent:dsl
// +fluent:dsl:className=Sentence
type Automation interface {
	VerifyOrder(/* @mustSeeOrderWith */ orderID string, /* @and */ orderCheck Check[string])
	InjectOrder(/* @injects @order */ value string, /* @into */ destination string) error
	// @within
	Wait(timeout time.Duration, tags ...string)
	Reset()
}

// Generate derives a salt for the automation.
//
// +fluent:static=Automation
func Generate(/* @generate */ salt string) int { return len(salt) }

// Repository stores values of one kind.
//
// +fluent:dsl
type Repository[T any, K comparable] interface {
	Store(/* @store */ value T, /* @under */ key K)
}

// Trade is filled by a builder.
//
// +fluent:builder
type Trade struct {
	Symbol string
	Price  float64
	at     time.Time
}

func NewTrade(symbol string) *Trade { return &Trade{Symbol: symbol, at: time.Now()} }

func NewTradeAt(symbol string, at time.Time) Trade { return Trade{Symbol: symbol, at: at} }

func NewTradeDefault() Trade { return Trade{} }

func NewTradeWith() string { return "" }

// Ticket is only generated when a nested parameter asks for it.
type Ticket struct {
	ID string
}

// Desk places tickets.
//
// +fluent:dsl
type Desk interface {
	Place(/* @dsl */ ticket Ticket)
}

// +fluent:builder
type Side int
