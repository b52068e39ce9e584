/*
   Copyright 2025 The DIRPX Authors.

   Licensed under the Apache License, Version 2.0 (the "License");
   you may not use this file except in compliance with the License.
   You may obtain a copy of the License at

       http://www.apache.org/licenses/LICENSE-2.0

   Unless required by applicable law or agreed to in writing, software
   distributed under the License is distributed on an "AS IS" BASIS,
   WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
   See the License for the specific language governing permissions and
   limitations under the License.
*/

// Package svx routes service objects to the handlers that execute them.
//
// A service is a plain Go value carrying the input of one unit of business
// logic (CreatePostService, DeletePostService). It either runs itself or is
// executed by a separate handler, found by naming convention or declared
// explicitly. Callers only ever say:
//
//	out, err := engine.Dispatch(ctx, &CreatePostService{Title: "hello"})
//
// # Identities
//
// Every service and handler has an identity: a dot-separated,
// fully-qualified type name such as "App.Services.Definitions.CreatePostService".
// The identity of a runtime value is derived by a chain of strategies, in
// priority order:
//
//  1. If the value implements apis.Identifier, use v.Identity().
//  2. If the type was registered (Engine.RegisterType), use that identity.
//  3. Otherwise, derive it from the import path: the part below
//     Config.ModulePath becomes namespace segments under
//     Config.RootNamespace, followed by the type name.
//
// # Naming
//
// The translator package maps a definition identity to its handler
// identity: a duplicated definition suffix is collapsed, the handler suffix
// is appended and the definitions segment of the namespace is swapped for
// the handlers segment. With the default Config:
//
//	App.Services.Definitions.CreatePostService -> App.Services.Handlers.CreatePostHandler
//	App.Services.Definitions.Posts.Publish     -> App.Services.Handlers.Posts.PublishHandler
//
// # Discovery
//
// With Config.Autoload, the Engine walks the definitions directory and maps
// every definition file to its translated handler. Files without the
// definition suffix are support files and are skipped. Definitions that
// declare the dispatch method themselves are skipped too: they are
// detected by parsing their source, never by loading it. Discovery runs
// once, on Load or lazily on the first dispatch, behind a barrier so
// concurrent first callers never observe a partial mapping. With
// Config.Cache the result is kept in an apis.Cache (in memory, or in Redis
// to survive restarts) until Reload invalidates it. Watch reloads whenever
// the directory changes.
//
// # Dispatch
//
// For each call the dispatcher picks exactly one target:
//
//  1. The handler mapped to the service identity. Explicit mappings
//     (Config.Handlers, Engine.Map) always mask discovered ones. The
//     handler is built by the configured apis.Instantiator; the dispatcher
//     keeps no instances.
//  2. Otherwise the service itself, when it implements the dispatch
//     method (apis.SelfHandler for the default "Run" contract).
//  3. Otherwise the call fails with *apis.HandlerNotFoundError.
//
// The service is then threaded through the middleware pipeline in declared
// order and the dispatch method is called once with the service the last
// step passed on. Its result is returned unchanged. A step must call next
// exactly once or fail; anything else is an *apis.PipelineContractViolation.
//
// # Global API
//
// Dispatch, DispatchThrough, HasHandler, Map, SetPipeline and Call operate
// on a process-wide default engine. Configure or SetDefault replace it
// atomically; readers never lock.
package svx
