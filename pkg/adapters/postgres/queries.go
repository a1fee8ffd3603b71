package postgres

// viewsQuery lists every materialized view. The ordering fixes the
// discovery order used to break ties in the refresh order.
const viewsQuery = `
SELECT
	ns.nspname AS mat_view_schema,
	pgc.relname AS mat_view
FROM pg_class pgc
INNER JOIN pg_namespace ns ON pgc.relnamespace = ns.oid
WHERE pgc.relkind = 'm'
ORDER BY ns.nspname, pgc.relname
`

// dependenciesQuery lists view-to-view dependencies through the rewrite
// rules of the dependent views. Each row is (source, dependent).
const dependenciesQuery = `
SELECT
	source_ns.nspname AS source_schema,
	source_mat_view.relname AS source_mat_view,
	dependent_ns.nspname AS dependent_schema,
	dependent_mat_view.relname AS dependent_mat_view
FROM pg_depend
INNER JOIN pg_rewrite ON pg_depend.objid = pg_rewrite.oid
INNER JOIN pg_class AS dependent_mat_view ON pg_rewrite.ev_class = dependent_mat_view.oid
INNER JOIN pg_class AS source_mat_view ON pg_depend.refobjid = source_mat_view.oid
INNER JOIN pg_namespace source_ns ON source_ns.oid = source_mat_view.relnamespace
INNER JOIN pg_namespace dependent_ns ON dependent_ns.oid = dependent_mat_view.relnamespace
INNER JOIN pg_attribute ON pg_depend.refobjid = pg_attribute.attrelid
	AND pg_depend.refobjsubid = pg_attribute.attnum
WHERE dependent_mat_view.relkind = 'm'
	AND source_mat_view.relkind = 'm'
	AND source_mat_view.oid <> dependent_mat_view.oid
	AND pg_attribute.attnum > 0
GROUP BY source_schema, source_mat_view.relname, dependent_schema, dependent_mat_view.relname
ORDER BY source_mat_view.relname, source_schema, dependent_mat_view.relname, dependent_schema
`
