package store

import (
	"fmt"

	pg_query "github.com/pganalyze/pg_query_go/v6"

	"github.com/corvid-labs/rowgen/internal/rgerrors"
)

// validateIdentifier rejects anything that can't stand alone as a bare SQL
// identifier before it gets spliced into dynamic DDL (the per-dataset row
// table name is built at runtime, not fixed in the migrations). It
// reuses the teacher's pg_query_go dependency for a narrower job than the
// lineage resolver it originally served: parse "SELECT 1 AS <name>" and
// confirm the parser accepted name as a single column alias, nothing more.
func validateIdentifier(name string) error {
	if name == "" {
		return rgerrors.New(rgerrors.KindStore, "empty identifier")
	}

	probe := fmt.Sprintf(`SELECT 1 AS %s`, name)
	result, err := pg_query.Parse(probe)
	if err != nil {
		return rgerrors.Wrap(rgerrors.KindStore, fmt.Sprintf("invalid identifier %q", name), err)
	}

	stmts := result.GetStmts()
	if len(stmts) != 1 {
		return rgerrors.New(rgerrors.KindStore, fmt.Sprintf("invalid identifier %q", name))
	}

	selectStmt := stmts[0].GetStmt().GetSelectStmt()
	if selectStmt == nil || len(selectStmt.GetTargetList()) != 1 {
		return rgerrors.New(rgerrors.KindStore, fmt.Sprintf("invalid identifier %q", name))
	}

	target := selectStmt.GetTargetList()[0].GetResTarget()
	if target == nil || target.GetName() != name {
		return rgerrors.New(rgerrors.KindStore, fmt.Sprintf("invalid identifier %q", name))
	}

	return nil
}

// rowTableName is the dynamically-named per-dataset row table.
func rowTableName(datasetID int64) string {
	return fmt.Sprintf("rows_%d", datasetID)
}
