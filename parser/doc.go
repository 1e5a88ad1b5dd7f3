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

// Package parser converts one uploaded source file into linear text.
//
// Each supported format has a fixed extraction policy:
//
//   - pdf: per page, detected table rows first (cells joined with " | "),
//     then the page's plain text; pages in order.
//   - xlsx, xls: the first sheet as a header-led pipe table.
//   - csv: comma, then semicolon, then a sniffed delimiter over a Latin-1
//     decode. Every escalation is logged as a warning.
//   - md, txt: the content verbatim.
//   - html, htm: tables first, then the visible body text.
//
// Any other format fails with core.ErrUnsupportedFormat. Whatever the format,
// text that is empty after trimming fails with core.ErrEmptyContent, so no
// empty document ever reaches the chunker.
package parser
