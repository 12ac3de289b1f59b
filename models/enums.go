package models

type UnitType string

const (
	UnitTypeMass   UnitType = "Mass"
	UnitTypeVolume UnitType = "Volume"
	UnitTypeCount  UnitType = "Count"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "Pending"
	OrderStatusInKitchen OrderStatus = "InKitchen"
	OrderStatusServed    OrderStatus = "Served"
	OrderStatusPaid      OrderStatus = "Paid"
	OrderStatusCancelled OrderStatus = "Cancelled"
)

type OrderSource string

const (
	OrderSourceWalkIn       OrderSource = "WalkIn"
	OrderSourceHomeDelivery OrderSource = "HomeDelivery"
	OrderSourceFoodPanda    OrderSource = "FoodPanda"
)

type PaymentMethod string

const (
	PaymentMethodCash PaymentMethod = "Cash"
	PaymentMethodCard PaymentMethod = "Card"
)

type PurchaseOrderStatus string

const (
	PurchaseOrderStatusPending  PurchaseOrderStatus = "Pending"
	PurchaseOrderStatusReceived PurchaseOrderStatus = "Received"
)

type InventoryTransactionType string

const (
	InventoryTransactionTypeIn     InventoryTransactionType = "In"
	InventoryTransactionTypeOut    InventoryTransactionType = "Out"
	InventoryTransactionTypeReturn InventoryTransactionType = "Return"
)

type VoucherType string

const (
	VoucherTypeIssue  VoucherType = "Issue"
	VoucherTypeReturn VoucherType = "Return"
)

type UserRole string

const (
	UserRoleAdmin   UserRole = "Admin"
	UserRoleCashier UserRole = "Cashier"
	UserRoleKitchen UserRole = "Kitchen"
)
