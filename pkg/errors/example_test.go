// Package errors provides examples of structured error handling in arbor.
package errors_test

import (
	"fmt"
	"io"

	"github.com/ajitpratap0/arbor/pkg/errors"
)

// Example demonstrates basic error creation and details.
func Example() {
	err := errors.New(errors.ErrorTypeParameter, "samples must not be empty").
		WithDetail("operation", "link_ancestors")

	fmt.Println(err.Error())

	// Output:
	// parameter: samples must not be empty
}

// ExampleCoded shows the engine's coded errors.
func ExampleCoded() {
	err := errors.Coded(errors.CodeNodeOutOfBounds).WithDetail("node", 12)

	fmt.Println(err)
	fmt.Println(errors.IsType(err, errors.ErrorTypeBounds))
	fmt.Println(errors.Is(err, errors.Coded(errors.CodeNodeOutOfBounds)))

	// Output:
	// bounds: node id out of bounds
	// true
	// true
}

// ExampleWrap shows how to wrap existing errors with context.
func ExampleWrap() {
	err := errors.Wrap(io.ErrUnexpectedEOF, errors.ErrorTypeIO, "failed to read tree file").
		WithDetail("path", "out.trees")

	if errors.IsType(err, errors.ErrorTypeIO) {
		fmt.Println("This is an io error")
	}
	if errors.Is(err, io.ErrUnexpectedEOF) {
		fmt.Println("Cause was unexpected EOF")
	}

	// Output:
	// This is an io error
	// Cause was unexpected EOF
}

// ExampleIsCode demonstrates matching a code through a wrapped chain.
func ExampleIsCode() {
	inner := errors.Coded(errors.CodeEdgesNotSortedParentTime)
	outer := errors.Wrap(inner, errors.ErrorTypeIO, "dump failed")

	fmt.Printf("outer is io: %v\n", errors.IsType(outer, errors.ErrorTypeIO))
	fmt.Printf("chain has ordering code: %v\n", errors.IsCode(outer, errors.CodeEdgesNotSortedParentTime))
	fmt.Printf("code of chain: %s\n", errors.CodeOf(outer))

	// Output:
	// outer is io: true
	// chain has ordering code: true
	// code of chain: edges_not_sorted_parent_time
}

// Example_errorChain shows how messages compose across wrapping levels.
func Example_errorChain() {
	err := loadColumn()
	if err != nil {
		err = errors.Wrap(err, errors.ErrorTypeIO, "load failed").
			WithDetail("path", "sim.trees")
		fmt.Println("Full error chain:", err)
	}

	// Output:
	// Full error chain: io: load failed: format: a required column was not found in the file
}

func loadColumn() error {
	return errors.Coded(errors.CodeRequiredColumnNotFound).WithDetail("key", "nodes/time")
}
