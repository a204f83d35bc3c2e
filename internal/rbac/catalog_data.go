package rbac

// Permission names shared by handlers and the navigation gate.
const (
	PermManageUsers     = "manage_users"
	PermManageRoles     = "manage_roles"
	PermViewAuditLog    = "view_audit_log"
	PermViewAllJobs     = "view_all_jobs"
	PermCreateJob       = "create_job"
	PermEditJob         = "edit_job"
	PermDeleteJob       = "delete_job"
	PermVerifyJob       = "verify_job"
	PermExportJob       = "export_job"
	PermViewInventory   = "view_inventory"
	PermManageInventory = "manage_inventory"
	PermAdjustStock     = "adjust_stock"
	PermPrintBarcodes   = "print_barcodes"
	PermViewAccounting  = "view_accounting"
	PermManageInvoices  = "manage_invoices"
	PermManageBills     = "manage_bills"
	PermApprovePO       = "approve_purchase_orders"
	PermManageContacts  = "manage_contacts"
	PermViewReports     = "view_reports"
	PermExportCSV       = "export_csv"
)

// Resource tags.
const (
	ResourceUsers          = "users"
	ResourceRoles          = "roles"
	ResourceJobs           = "jobs"
	ResourceInventory      = "inventory"
	ResourceInvoices       = "invoices"
	ResourceBills          = "bills"
	ResourcePurchaseOrders = "purchase_orders"
	ResourceContacts       = "contacts"
	ResourceReports        = "reports"
)

func entry(permission string, resource *string, label, description string, full bool) Entry {
	return Entry{Permission: permission, Resource: resource, Label: label, Description: description, IncludeInFull: full}
}

func builtinModules() []Module {
	users := Resource(ResourceUsers)
	roles := Resource(ResourceRoles)
	jobs := Resource(ResourceJobs)
	inventory := Resource(ResourceInventory)
	invoices := Resource(ResourceInvoices)
	bills := Resource(ResourceBills)
	pos := Resource(ResourcePurchaseOrders)
	contacts := Resource(ResourceContacts)
	reports := Resource(ResourceReports)

	return []Module{
		{
			Name: "Administration",
			Rows: []Row{
				{Label: "Users", Columns: map[Action][]Entry{
					ActionFull: {entry(PermManageUsers, users, "Manage users", "Create, deactivate and edit user accounts", true)},
					ActionView: {entry(PermManageUsers, nil, "Open admin panel", "See the administration panel and user listing", true)},
				}},
				{Label: "Roles", Columns: map[Action][]Entry{
					ActionEdit: {entry(PermManageRoles, roles, "Assign roles", "Assign and remove roles for any user", true)},
				}},
				{Label: "Audit", Columns: map[Action][]Entry{
					ActionView: {entry(PermViewAuditLog, nil, "View audit log", "Read the role change audit trail", false)},
				}},
			},
		},
		{
			Name: "Optimization Jobs",
			Rows: []Row{
				{Label: "Balancing jobs", Columns: map[Action][]Entry{
					ActionView:    {entry(PermViewAllJobs, jobs, "View all jobs", "See balancing jobs created by any user", true)},
					ActionCreate:  {entry(PermCreateJob, jobs, "Create jobs", "Run the cell balancer and save a job", true)},
					ActionEdit:    {entry(PermEditJob, jobs, "Edit jobs", "Change cells and pack layout of saved jobs", true)},
					ActionDelete:  {entry(PermDeleteJob, jobs, "Delete jobs", "Remove saved balancing jobs", true)},
					ActionApprove: {entry(PermVerifyJob, jobs, "Verify jobs", "Mark a balancing job as verified", true)},
					ActionOthers:  {entry(PermExportJob, jobs, "Export jobs", "Download job results as CSV", false)},
				}},
			},
		},
		{
			Name: "Inventory",
			Rows: []Row{
				{Label: "Stock", Columns: map[Action][]Entry{
					ActionView:   {entry(PermViewInventory, inventory, "View inventory", "See items, stock levels and movements", true)},
					ActionCreate: {entry(PermManageInventory, inventory, "Manage items", "Create and edit inventory items", true)},
					ActionEdit:   {entry(PermAdjustStock, inventory, "Adjust stock", "Post stock adjustments", true)},
					ActionOthers: {entry(PermPrintBarcodes, inventory, "Print barcodes", "Render item barcodes and serial labels", false)},
				}},
			},
		},
		{
			Name: "Accounting",
			Rows: []Row{
				{Label: "Overview", Columns: map[Action][]Entry{
					ActionView: {entry(PermViewAccounting, nil, "View accounting", "Open the accounting workspace", true)},
				}},
				{Label: "Invoices", Columns: map[Action][]Entry{
					ActionEdit: {entry(PermManageInvoices, invoices, "Manage invoices", "Create, send and void customer invoices", true)},
				}},
				{Label: "Bills", Columns: map[Action][]Entry{
					ActionEdit: {entry(PermManageBills, bills, "Manage bills", "Record and pay supplier bills", true)},
				}},
				{Label: "Purchase orders", Columns: map[Action][]Entry{
					ActionApprove: {entry(PermApprovePO, pos, "Approve purchase orders", "Approve purchase orders before they are sent", true)},
				}},
				{Label: "Contacts", Columns: map[Action][]Entry{
					ActionEdit: {entry(PermManageContacts, contacts, "Manage contacts", "Maintain customers and suppliers", true)},
				}},
				{Label: "Reports", Columns: map[Action][]Entry{
					ActionView:   {entry(PermViewReports, reports, "View reports", "Profit and loss, receivables and payables", true)},
					ActionOthers: {entry(PermExportCSV, reports, "Export CSV", "Download report data as CSV", false)},
				}},
			},
		},
	}
}

func builtinGrants() map[Role][]string {
	keys := func(pairs ...[2]string) []string {
		out := make([]string, 0, len(pairs))
		for _, p := range pairs {
			var res *string
			if p[1] != "" {
				res = Resource(p[1])
			}
			out = append(out, KeyOf(p[0], res))
		}
		return out
	}

	all := make([]string, 0, 32)
	for _, m := range builtinModules() {
		for _, row := range m.Rows {
			for _, action := range Actions() {
				for _, e := range row.Columns[action] {
					all = append(all, e.Key())
				}
			}
		}
	}

	return map[Role][]string{
		Admin: all,
		Creator: keys(
			[2]string{PermCreateJob, ResourceJobs},
			[2]string{PermEditJob, ResourceJobs},
			[2]string{PermExportJob, ResourceJobs},
			[2]string{PermViewInventory, ResourceInventory},
			[2]string{PermManageInventory, ResourceInventory},
			[2]string{PermPrintBarcodes, ResourceInventory},
		),
		Verifier: keys(
			[2]string{PermViewAllJobs, ResourceJobs},
			[2]string{PermVerifyJob, ResourceJobs},
			[2]string{PermExportJob, ResourceJobs},
			[2]string{PermViewInventory, ResourceInventory},
		),
		StandardUser: keys(
			[2]string{PermCreateJob, ResourceJobs},
		),
	}
}

// DefaultCatalog is the built-in descriptive catalog rendered by the admin
// panel. Accessors hand out copies, so it cannot be changed through them.
var DefaultCatalog = MustCatalog(builtinModules(), builtinGrants())
