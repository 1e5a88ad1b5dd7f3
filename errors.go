// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package kbase

import "errors"

var (
	// ErrMediaRootRequired is returned when an in-memory service has no upload directory.
	ErrMediaRootRequired = errors.New("media root required for in-memory service")

	// ErrNoFreeName is returned when an upload cannot be given a unique file name.
	ErrNoFreeName = errors.New("no free file name")
)
