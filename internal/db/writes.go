package db

import (
	"errors"
	"fmt"
	"log/slog"
)

// deleteAccountStatements purge every table that references an account
var deleteAccountStatements = []string{
	`DELETE FROM Hostmasks WHERE id = ?`,
	`DELETE FROM Aliases WHERE id = ?1 OR alias = ?1`,
	`DELETE FROM Messages WHERE id = ?`,
	`DELETE FROM Channels WHERE id = ?`,
	`DELETE FROM Nickserv WHERE id = ?`,
	`DELETE FROM Gecos WHERE id = ?`,
	`DELETE FROM Accounts WHERE id = ?`,
}

// DeleteAccount removes an account and every row referencing it, atomically,
// in a transaction of its own. Pending batch writes are committed first.
// fixup runs inside that transaction after the rows are gone (union-find
// repair); an error from it rolls the whole deletion back.
// Must be called with the store lock held.
func (d *DB) DeleteAccount(id int64, fixup func() error) error {
	if _, err := d.commitLocked(); err != nil {
		return err
	}
	if err := d.beginLocked(); err != nil {
		return err
	}

	masks, err := d.HostmasksByID(id)
	if err != nil {
		return d.abortDelete(id, fmt.Errorf("listing hostmasks: %w", err))
	}

	for _, stmt := range deleteAccountStatements {
		if _, err := d.tx.Exec(stmt, id); err != nil {
			return d.abortDelete(id, fmt.Errorf("deleting account %d: %w", id, err))
		}
	}
	if fixup != nil {
		if err := fixup(); err != nil {
			return d.abortDelete(id, fmt.Errorf("repairing after delete of %d: %w", id, err))
		}
	}

	if err := d.tx.Commit(); err != nil {
		d.tx = nil
		return errors.Join(fmt.Errorf("committing delete of %d: %w", id, err), d.beginLocked())
	}
	d.tx = nil
	for _, h := range masks {
		d.masks.Delete(h.Mask)
	}
	slog.Info("account deleted", "account_id", id, "hostmasks", len(masks))
	return d.beginLocked()
}

func (d *DB) abortDelete(id int64, cause error) error {
	slog.Error("account delete rolled back", "account_id", id, "error", cause)
	err := d.tx.Rollback()
	d.tx = nil
	return errors.Join(cause, err, d.beginLocked())
}
