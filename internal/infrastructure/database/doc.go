// Package database is the Safehouse persistence gateway over SQLite.
//
// Domain packages never see *sql.DB. They depend on Executor, whose single
// method runs a statement with named parameters and returns the rows (as
// column-keyed maps), the affected row count and the last insert id:
//
//	res, err := db.Execute(ctx,
//	    `SELECT id, user_id FROM keycards WHERE rfid_tag = @tag`,
//	    database.Params{"tag": tag})
//
// Every value reaches SQLite as a bound parameter. go-sqlite3 rejects a
// named argument the statement does not reference, so callers pass exactly
// the parameters a query uses.
//
// Schema changes live in the migrations package as embedded
// YYYYMMDD_HHMMSS_name.up.sql / .down.sql pairs and are applied with
// Migrate at startup.
package database
