//
// Copyright 2016 Gregory Trubetskoy. All Rights Reserved.
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

// Package serde is where rows leave the process: it writes complete
// server_metrics rows to PostgreSQL.
package serde

import (
	"context"

	"github.com/telesink/telesink/row"
)

// RowInserter stores one complete row.
type RowInserter interface {
	InsertRow(ctx context.Context, r *row.Complete) error
}

// DbSerDe is a RowInserter backed by a database connection.
type DbSerDe interface {
	RowInserter
	Close() error
}
