// Copyright (c) 2014-2016 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// error instances
//
// Provides a single instance of errors to allow easy comparison
package fault

// error base
type GenericError string

// to allow for different classes of errors
type ProgrammerError GenericError // caller misused the API; returned synchronously
type ChainError GenericError      // surfaced on a chain's error channel
type IoError GenericError         // storage error other than NotFound

// common errors - keep in alphabetic order within each class
var (
	ErrBadKey      = ProgrammerError("key is neither a raw public key nor a hex/base32 encoding of one")
	ErrBadStorage  = ProgrammerError("storage argument is neither a directory path nor a factory function")
	ErrMissingName = ProgrammerError("default chain requires a name")
	ErrNotOpen     = ProgrammerError("store is not open")

	ErrUnknownKeypair  = ChainError("no local record for this discovery key")
	ErrWrongNameStored = ChainError("name stored on disk does not hash to the expected discovery key")

	ErrNotFound = IoError("not found")
)

// the error interface base method
func (e GenericError) Error() string { return string(e) }

// the error interface methods
func (e ProgrammerError) Error() string { return string(e) }
func (e ChainError) Error() string      { return string(e) }
func (e IoError) Error() string         { return string(e) }

// determine the class of an error
func IsProgrammerError(e error) bool { _, ok := e.(ProgrammerError); return ok }
func IsChainError(e error) bool      { _, ok := e.(ChainError); return ok }
func IsIoError(e error) bool         { _, ok := e.(IoError); return ok }

// IsNotFound reports whether err is the storage NotFound sentinel.
func IsNotFound(e error) bool { return ErrNotFound == e }
