package rbac

// Operation is a named capability checked with Checker.Allows.
type Operation string

// Known operations. Each maps to one resource/action pair.
const (
	OpViewClients          Operation = "view_clients"
	OpCreateClients        Operation = "create_clients"
	OpViewOrders           Operation = "view_orders"
	OpCreateOrders         Operation = "create_orders"
	OpViewWarehouses       Operation = "view_warehouses"
	OpManageWarehouses     Operation = "manage_warehouses"
	OpViewProducts         Operation = "view_products"
	OpViewCashRegisters    Operation = "view_cash_registers"
	OpViewTransactions     Operation = "view_transactions"
	OpViewChats            Operation = "view_chats"
	OpCreateChats          Operation = "create_chats"
	OpViewTasks            Operation = "view_tasks"
	OpViewCompanies        Operation = "view_companies"
	OpUpdateCompanies      Operation = "update_companies"
	OpViewUsers            Operation = "view_users"
	OpViewRoles            Operation = "view_roles"
	OpManageRoles          Operation = "manage_roles"
	OpViewPermissions      Operation = "view_permissions"
	OpViewMutualSettlement Operation = "view_mutual_settlements"
)

type operationTarget struct {
	Resource string
	Action   string
}

var operationTargets = map[Operation]operationTarget{
	OpViewClients:          {Resource: "clients", Action: "view"},
	OpCreateClients:        {Resource: "clients", Action: "create"},
	OpViewOrders:           {Resource: "orders", Action: "view"},
	OpCreateOrders:         {Resource: "orders", Action: "create"},
	OpViewWarehouses:       {Resource: "warehouses", Action: "view"},
	OpManageWarehouses:     {Resource: "warehouses", Action: "manage"},
	OpViewProducts:         {Resource: "products", Action: "view"},
	OpViewCashRegisters:    {Resource: "cash_registers", Action: "view"},
	OpViewTransactions:     {Resource: "transactions", Action: "view"},
	OpViewChats:            {Resource: "chats", Action: "view"},
	OpCreateChats:          {Resource: "chats", Action: "create"},
	OpViewTasks:            {Resource: "tasks", Action: "view"},
	OpViewCompanies:        {Resource: "companies", Action: "view"},
	OpUpdateCompanies:      {Resource: "companies", Action: "update"},
	OpViewUsers:            {Resource: "users", Action: "view"},
	OpViewRoles:            {Resource: "roles", Action: "view"},
	OpManageRoles:          {Resource: "roles", Action: "manage"},
	OpViewPermissions:      {Resource: "permissions", Action: "view"},
	OpViewMutualSettlement: {Resource: "mutual_settlements", Action: "view"},
}

// OperationTarget returns the resource and action an operation checks.
func OperationTarget(op Operation) (resource, action string, ok bool) {
	t, ok := operationTargets[op]
	return t.Resource, t.Action, ok
}
