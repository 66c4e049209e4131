package domain

// Entity names exposed by the read-only catalog endpoints.
type Entity string

const (
	EntityProducts   Entity = "products"
	EntityCategories Entity = "categories"
	EntitySuppliers  Entity = "suppliers"
	EntityCustomers  Entity = "customers"
	EntityOrders     Entity = "orders"
	EntityEmployees  Entity = "employees"
)

// Record is a single catalog row keyed by column name.
type Record map[string]any

// Page is a window over a catalog listing.
type Page struct {
	Items  []Record
	Limit  int
	Offset int
}
