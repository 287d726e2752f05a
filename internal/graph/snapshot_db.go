package graph

import (
	"mycelica/aka/internal/db"
)

// SnapshotFromDB loads a GraphSnapshot from the database
func SnapshotFromDB(d *db.DB) (*GraphSnapshot, error) {
	dbAccounts, err := d.AccountSummaries()
	if err != nil {
		return nil, err
	}
	dbAliases, err := d.AllAliases()
	if err != nil {
		return nil, err
	}

	accounts := make([]*AccountInfo, 0, len(dbAccounts))
	for _, a := range dbAccounts {
		var nickserv string
		if a.Nickserv != nil {
			nickserv = *a.Nickserv
		}
		accounts = append(accounts, &AccountInfo{
			ID:       a.ID,
			Hostmask: a.Hostmask,
			Nickserv: nickserv,
			Masks:    a.Masks,
			LastSeen: a.LastSeen,
		})
	}

	edges := make([]EdgeInfo, 0, len(dbAliases))
	for _, a := range dbAliases {
		edges = append(edges, EdgeInfo{
			Source: a.ID,
			Target: a.Alias,
			Trust:  a.Type,
		})
	}

	return NewSnapshot(accounts, edges), nil
}
