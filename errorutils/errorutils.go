// Copyright 2026 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package errorutils provides the error type returned by the app, credential
// and token packages, along with helpers to classify it.
package errorutils

import (
	"errors"
	"fmt"
)

// Kind classifies an [Error].
type Kind int

const (
	// Unknown is the zero Kind. It is never produced by this module.
	Unknown Kind = iota
	// InvalidCredential reports malformed or missing secret material, a
	// malformed token endpoint response, or a failed token exchange.
	InvalidCredential
	// InvalidAppOptions reports app options that cannot be used.
	InvalidAppOptions
	// DuplicateApp reports an attempt to initialize an app under a name that
	// is already bound to a live app.
	DuplicateApp
	// AppNotFound reports a lookup of a name with no live app.
	AppNotFound
	// AppDeleted reports an operation on an app that has been deleted.
	AppDeleted
	// InvalidArgument reports malformed input to a public entry point.
	InvalidArgument
)

// String returns the stable error code for k.
func (k Kind) String() string {
	switch k {
	case InvalidCredential:
		return "app/invalid-credential"
	case InvalidAppOptions:
		return "app/invalid-app-options"
	case DuplicateApp:
		return "app/duplicate-app"
	case AppNotFound:
		return "app/no-app"
	case AppDeleted:
		return "app/app-deleted"
	case InvalidArgument:
		return "app/invalid-argument"
	default:
		return "app/unknown"
	}
}

// Error is the error type returned by this module. All fields are
// considered read-only.
type Error struct {
	// Kind classifies the error.
	Kind Kind
	// Message is the developer facing description.
	Message string
	// Err is the underlying error, if any.
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New returns an [Error] of the given kind with a formatted message.
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap returns an [Error] of the given kind that wraps err. If format is
// empty the message of err is used.
func Wrap(kind Kind, err error, format string, args ...interface{}) *Error {
	msg := fmt.Sprintf(format, args...)
	if format == "" && err != nil {
		msg = err.Error()
	}
	return &Error{Kind: kind, Message: msg, Err: err}
}

// KindOf returns the Kind of the first [Error] in err's chain, or Unknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Unknown
}

// IsInvalidCredential reports whether err is an InvalidCredential error.
func IsInvalidCredential(err error) bool { return KindOf(err) == InvalidCredential }

// IsInvalidAppOptions reports whether err is an InvalidAppOptions error.
func IsInvalidAppOptions(err error) bool { return KindOf(err) == InvalidAppOptions }

// IsDuplicateApp reports whether err is a DuplicateApp error.
func IsDuplicateApp(err error) bool { return KindOf(err) == DuplicateApp }

// IsAppNotFound reports whether err is an AppNotFound error.
func IsAppNotFound(err error) bool { return KindOf(err) == AppNotFound }

// IsAppDeleted reports whether err is an AppDeleted error.
func IsAppDeleted(err error) bool { return KindOf(err) == AppDeleted }

// IsInvalidArgument reports whether err is an InvalidArgument error.
func IsInvalidArgument(err error) bool { return KindOf(err) == InvalidArgument }
