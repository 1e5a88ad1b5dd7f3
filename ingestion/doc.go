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


// Package ingestion turns uploaded documents into tagged chunks in a vector store.
//
// A Pipeline runs four stages for one document: parse the file into text,
// split the text into chunks, tag every chunk with its owner and provenance,
// and hand the batch to the store in a single call. Any failure aborts the
// document and leaves nothing behind for it. Callers only learn whether the
// document made it; the reason is logged.
//
// Re-ingestion writes a new generation of chunks before removing the old one,
// so a document is never without searchable content while it is refreshed.
package ingestion
