// Package database provides SQLite connectivity for Gray Hearth.
//
// It opens the database in WAL mode with a busy timeout, restricts the pool
// to a single connection, and applies the embedded schema migrations from
// the migrations package.
//
//	db, err := database.Open(ctx, cfg.Database)
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
//
// Migrations are additive: new columns must be nullable or carry a default,
// and every .up.sql should ship with a .down.sql for development rollbacks.
package database
