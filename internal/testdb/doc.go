// Package testdb provides database helpers for store tests.
//
// PostgreSQL tests run each case in a transaction that is rolled back when
// the case finishes, so cases can call t.Parallel() without cleanup:
//
//	func TestCardStates(t *testing.T) {
//	    t.Parallel()
//	    db := testdb.GetTestDBWithT(t)
//
//	    testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
//	        s := postgres.NewPostgresCardStateStore(tx, nil)
//	        // ...
//	    })
//	}
//
// GetTestDBWithT skips the test when none of DATABASE_URL, SCRY_TEST_DB_URL
// or SCRY_DATABASE_URL is set. SQLite tests need no environment at all:
// NewSQLiteDB returns a migrated database file in the test's temp directory.
package testdb
