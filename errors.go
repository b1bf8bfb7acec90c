// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package halsim

import "github.com/pkg/errors"

// Error causes. Errors returned by this package wrap one of these with
// context; use errors.Cause to test for them.
//
var (
	// ErrStructure reports a malformed register template.
	ErrStructure = errors.New("malformed register template")
	// ErrNoSuchKey reports a key or index that does not exist in the store.
	ErrNoSuchKey = errors.New("no such key")
	// ErrShape reports an update whose shape does not match the store.
	ErrShape = errors.New("shape mismatch")
)
