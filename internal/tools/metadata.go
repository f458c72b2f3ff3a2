package tools

import "github.com/onpaj/heblo-mcp/internal/openapi"

// Operation identifies one curated Heblo API endpoint exposed as an MCP
// tool. The upstream document carries neither operation IDs nor
// summaries, so both are maintained here.
type Operation struct {
	Method      string
	Path        string
	OperationID string
	Summary     string
}

// Curated is the allow-list of exposed endpoints. Everything else in
// the upstream document stays hidden. Six tag groups: Analytics,
// Catalog, Invoices, IssuedInvoices, BankStatements, Dashboard.
var Curated = []Operation{
	// Analytics
	{"GET", "/api/Analytics/product-margin-summary", "analytics_product_margin_summary", "Get product margin summary with profit calculations"},
	{"GET", "/api/Analytics/margin-analysis", "analytics_margin_analysis", "Analyze profit margins across products and time periods"},
	{"GET", "/api/Analytics/margin-report", "analytics_margin_report", "Generate detailed margin report with breakdowns"},
	{"GET", "/api/Analytics/invoice-import-statistics", "analytics_invoice_import_stats", "Get statistics on invoice import operations"},
	{"GET", "/api/Analytics/bank-statement-import-statistics", "analytics_bank_statement_import_stats", "Get statistics on bank statement import operations"},

	// Catalog
	{"GET", "/api/Catalog", "catalog_list", "List all catalog products with filters and pagination"},
	{"GET", "/api/Catalog/{productCode}", "catalog_detail", "Get detailed information about a specific product"},
	{"GET", "/api/Catalog/{productCode}/composition", "catalog_composition", "Get product composition and material breakdown"},
	{"GET", "/api/Catalog/materials-for-purchase", "catalog_materials_for_purchase", "List materials that need to be purchased"},
	{"GET", "/api/Catalog/autocomplete", "catalog_autocomplete", "Search catalog with autocomplete suggestions"},
	{"GET", "/api/Catalog/{productCode}/manufacture-difficulty", "catalog_manufacture_difficulty_get", "Get manufacturing difficulty rating for a product"},
	{"POST", "/api/Catalog/manufacture-difficulty", "catalog_manufacture_difficulty_create", "Create manufacturing difficulty rating"},
	{"PUT", "/api/Catalog/manufacture-difficulty/{id}", "catalog_manufacture_difficulty_update", "Update manufacturing difficulty rating"},
	{"DELETE", "/api/Catalog/manufacture-difficulty/{id}", "catalog_manufacture_difficulty_delete", "Delete manufacturing difficulty rating"},
	{"GET", "/api/Catalog/{productCode}/usage", "catalog_product_usage", "Get product usage history and statistics"},
	{"GET", "/api/Catalog/warehouse-statistics", "catalog_warehouse_statistics", "Get warehouse inventory statistics"},
	{"POST", "/api/Catalog/recalculate-product-weight", "catalog_recalculate_all_weights", "Recalculate weights for all products"},
	{"POST", "/api/Catalog/recalculate-product-weight/{productCode}", "catalog_recalculate_product_weight", "Recalculate weight for a specific product"},
	{"POST", "/api/Catalog/stock-taking/enqueue", "catalog_stock_taking_enqueue", "Enqueue stock-taking job for processing"},
	{"GET", "/api/Catalog/stock-taking/job-status/{jobId}", "catalog_stock_taking_job_status", "Check status of stock-taking job"},

	// Invoices
	{"GET", "/api/invoices", "invoices_list", "List all invoices with filters and pagination"},
	{"GET", "/api/invoices/{id}", "invoices_detail", "Get detailed information about a specific invoice"},
	{"GET", "/api/invoices/stats", "invoices_statistics", "Get invoice statistics and summaries"},
	{"POST", "/api/invoices/import/enqueue-async", "invoices_import_enqueue", "Enqueue invoice import job for async processing"},
	{"GET", "/api/invoices/import/job-status/{jobId}", "invoices_import_job_status", "Check status of invoice import job"},
	{"GET", "/api/invoices/import/running-jobs", "invoices_import_running_jobs", "List all currently running invoice import jobs"},

	// IssuedInvoices
	{"GET", "/api/IssuedInvoices", "issued_invoices_list", "List all issued invoices with filters"},
	{"GET", "/api/IssuedInvoices/{id}", "issued_invoices_detail", "Get detailed information about a specific issued invoice"},
	{"GET", "/api/IssuedInvoices/sync-stats", "issued_invoices_sync_stats", "Get synchronization statistics for issued invoices"},

	// BankStatements
	{"POST", "/api/bank-statements/import", "bank_statements_import", "Import bank statements from file or data"},
	{"GET", "/api/bank-statements", "bank_statements_list", "List all bank statements with filters"},
	{"GET", "/api/bank-statements/{id}", "bank_statements_detail", "Get detailed information about a specific bank statement"},

	// Dashboard
	{"GET", "/api/Dashboard/tiles", "dashboard_tiles", "Get all available dashboard tiles"},
	{"GET", "/api/Dashboard/settings", "dashboard_settings_get", "Get current dashboard settings and configuration"},
	{"POST", "/api/Dashboard/settings", "dashboard_settings_update", "Update dashboard settings and configuration"},
	{"GET", "/api/Dashboard/data", "dashboard_data", "Get dashboard data for all enabled tiles"},
	{"POST", "/api/Dashboard/tiles/{tileId}/enable", "dashboard_tile_enable", "Enable a specific dashboard tile"},
	{"POST", "/api/Dashboard/tiles/{tileId}/disable", "dashboard_tile_disable", "Disable a specific dashboard tile"},
}

// PatchMap renders the curated list as OpenAPI operation patches keyed
// by "METHOD /path".
func PatchMap() map[string]openapi.OperationPatch {
	patches := make(map[string]openapi.OperationPatch, len(Curated))
	for _, op := range Curated {
		patches[op.Method+" "+op.Path] = openapi.OperationPatch{
			OperationID: op.OperationID,
			Summary:     op.Summary,
		}
	}
	return patches
}
