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


// Package kbase is a tenant-scoped document knowledge base with
// retrieval-augmented answers.
//
// A Service accepts file uploads per owner, parses and chunks them into a
// vector store tagged with the owner's id, and answers questions from the
// asking owner's chunks through an ordered chain of chat models. Every
// question and answer is kept as chat history.
//
//	svc, err := kbase.Open("data", kbase.WithAIConfig(ai.NewConfig()))
//	if err != nil {
//	    return err
//	}
//	defer svc.Close()
//
//	result := svc.UploadBatch(ctx, ownerID, uploads)
//	reply, err := svc.Ask(ctx, ownerID, "Jadwal kuliah semester 3?")
package kbase
