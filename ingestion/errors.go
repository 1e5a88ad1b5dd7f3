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


package ingestion

import "errors"

var (
	// ErrStoreRequired is returned when a pipeline is built without a vector store.
	ErrStoreRequired = errors.New("vector store required")

	// ErrParserRequired is returned when a nil parser is supplied.
	ErrParserRequired = errors.New("parser required")

	// ErrSplitterRequired is returned when a nil splitter is supplied.
	ErrSplitterRequired = errors.New("splitter required")

	// errStore marks failures of the final add to the vector store.
	errStore = errors.New("store")
)
