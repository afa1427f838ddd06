// Package all registers every warehouse backend. Blank-import it from a main
// package to make the kinds available to warehouse.New.
package all

import (
	_ "warehouse-etl/internal/warehouse/mssql"
	_ "warehouse-etl/internal/warehouse/postgres"
	_ "warehouse-etl/internal/warehouse/sqlite"
)
