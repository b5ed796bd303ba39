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


// Package openai implements the ai interfaces against OpenAI-compatible
// embedding APIs, including local servers such as Ollama and llama.cpp.
//
// Every outbound call is rate limited and guarded by a circuit breaker.
// After a run of consecutive failures the breaker opens and rejects
// calls immediately until the cooldown elapses, so batch indexing does
// not hammer a downed embedding service.
package openai
