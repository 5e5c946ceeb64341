package ledger

import (
	"context"
	"fmt"
	"strings"

	"github.com/iudanet/milkledger/internal/models"
)

// User оператор точки сбора
type User struct {
	ID         string
	Email      string
	Role       string
	ShopID     string
	AuthMethod string
}

// SaleItem позиция чека
type SaleItem struct {
	ProductID string  `json:"productId"`
	Name      string  `json:"name"`
	Quantity  float64 `json:"quantity"`
	Price     float64 `json:"price"`
}

// Sale продажа (чек)
type Sale struct {
	InvoiceNumber string
	CustomerName  string
	PaymentMode   string
	Items         []SaleItem
	Total         float64
	AmountPaid    float64
	Change        float64
}

// Shift смена кассира
type Shift struct {
	ShiftID     string
	Shift       string
	TerminalID  string
	OpeningCash float64
	ClosingCash float64
	TotalSales  float64
	Variance    float64
	SalesCount  int
}

// MilkIntake приемка молока от фермера
type MilkIntake struct {
	CollectionID string
	FarmerID     string
	Shift        string
	Liters       float64
	Fat          float64
	SNF          float64
	Rate         float64
	Amount       float64
}

// LogLogin фиксирует успешный или неудачный вход оператора
func (l *Ledger) LogLogin(ctx context.Context, user User, success bool) (*models.AuditEntry, error) {
	action, notes := models.ActionLoginSuccess, "User logged in successfully"
	if !success {
		action, notes = models.ActionLoginFailed, "Login failed"
	}

	id := user.ID
	if id == "" {
		id = "unknown"
	}
	method := user.AuthMethod
	if method == "" {
		method = "password"
	}

	return l.Log(ctx, action, "user", id, map[string]any{
		"email":  user.Email,
		"role":   user.Role,
		"shopId": user.ShopID,
		"method": method,
	}, notes)
}

// LogLogout фиксирует выход оператора
func (l *Ledger) LogLogout(ctx context.Context, user User, sessionSeconds int64) (*models.AuditEntry, error) {
	return l.Log(ctx, models.ActionLogout, "user", user.ID, map[string]any{
		"email":           user.Email,
		"sessionDuration": sessionSeconds,
	}, "User logged out")
}

// LogSale фиксирует продажу
func (l *Ledger) LogSale(ctx context.Context, sale Sale) (*models.AuditEntry, error) {
	return l.Log(ctx, models.ActionSaleCreate, "invoice", sale.InvoiceNumber, map[string]any{
		"customerName": sale.CustomerName,
		"items":        sale.Items,
		"totalAmount":  sale.Total,
		"paymentMode":  sale.PaymentMode,
		"amountPaid":   sale.AmountPaid,
		"change":       sale.Change,
		"itemsCount":   len(sale.Items),
	}, fmt.Sprintf("Sale of ₹%.2f via %s", sale.Total, sale.PaymentMode))
}

// LogSaleModify фиксирует изменение чека
func (l *Ledger) LogSaleModify(ctx context.Context, oldSale, newSale Sale, reason string) (*models.AuditEntry, error) {
	return l.Log(ctx, models.ActionSaleModify, "invoice", newSale.InvoiceNumber, map[string]any{
		"oldTotal":           oldSale.Total,
		"newTotal":           newSale.Total,
		"modificationReason": reason,
		"difference":         newSale.Total - oldSale.Total,
	}, "Invoice modified: "+reason)
}

// LogSaleVoid фиксирует аннулирование чека
func (l *Ledger) LogSaleVoid(ctx context.Context, sale Sale, reason string) (*models.AuditEntry, error) {
	return l.Log(ctx, models.ActionSaleVoid, "invoice", sale.InvoiceNumber, map[string]any{
		"customerName": sale.CustomerName,
		"voidReason":   reason,
		"voidAmount":   sale.Total,
	}, "Invoice voided: "+reason)
}

// LogLedgerEntry фиксирует операцию по счету клиента (credit/debit)
func (l *Ledger) LogLedgerEntry(ctx context.Context, customerID, customerName, kind string, amount, balance float64) (*models.AuditEntry, error) {
	return l.Log(ctx, models.ActionLedgerEntry, "customer_ledger", customerID, map[string]any{
		"customerName":    customerName,
		"transactionType": kind,
		"amount":          amount,
		"balance":         balance,
	}, fmt.Sprintf("%s of ₹%.2f - Balance: ₹%.2f", kind, amount, balance))
}

// LogShiftStart фиксирует открытие смены
func (l *Ledger) LogShiftStart(ctx context.Context, shift Shift) (*models.AuditEntry, error) {
	return l.Log(ctx, models.ActionShiftStart, "shift", shift.ShiftID, map[string]any{
		"shift":       shift.Shift,
		"openingCash": shift.OpeningCash,
		"terminalId":  shift.TerminalID,
	}, "Shift started: "+shift.Shift)
}

// LogShiftEnd фиксирует закрытие смены
func (l *Ledger) LogShiftEnd(ctx context.Context, shift Shift) (*models.AuditEntry, error) {
	return l.Log(ctx, models.ActionShiftEnd, "shift", shift.ShiftID, map[string]any{
		"shift":       shift.Shift,
		"closingCash": shift.ClosingCash,
		"salesCount":  shift.SalesCount,
		"totalSales":  shift.TotalSales,
		"variance":    shift.Variance,
	}, "Shift ended: "+shift.Shift)
}

// LogCashDrawerOpen фиксирует открытие денежного ящика
func (l *Ledger) LogCashDrawerOpen(ctx context.Context, drawerID, reason string) (*models.AuditEntry, error) {
	return l.Log(ctx, models.ActionCashDrawerOpen, "cash_drawer", drawerID, map[string]any{
		"reason": reason,
	}, "Cash drawer opened: "+reason)
}

// LogDeviceAction фиксирует действие с оборудованием (весы, анализатор, принтер)
func (l *Ledger) LogDeviceAction(ctx context.Context, deviceType, verb string, data map[string]any) (*models.AuditEntry, error) {
	return l.Log(ctx, models.DeviceAction(verb), "hardware_device", deviceType, data,
		fmt.Sprintf("%s %s", deviceType, strings.ToLower(verb)))
}

// LogSettingsChange фиксирует изменение настройки
func (l *Ledger) LogSettingsChange(ctx context.Context, name string, oldValue, newValue any) (*models.AuditEntry, error) {
	return l.Log(ctx, models.ActionSettingsChange, "settings", name, map[string]any{
		"settingName": name,
		"oldValue":    oldValue,
		"newValue":    newValue,
	}, "Setting changed: "+name)
}

// LogMilkIntake фиксирует приемку молока
func (l *Ledger) LogMilkIntake(ctx context.Context, intake MilkIntake) (*models.AuditEntry, error) {
	return l.Log(ctx, models.ActionMilkIntake, "milk_collection", intake.CollectionID, map[string]any{
		"farmerId": intake.FarmerID,
		"shift":    intake.Shift,
		"liters":   intake.Liters,
		"fat":      intake.Fat,
		"snf":      intake.SNF,
		"rate":     intake.Rate,
		"amount":   intake.Amount,
	}, fmt.Sprintf("Milk intake %.2f L from %s", intake.Liters, intake.FarmerID))
}

// Product товар справочника
type Product struct {
	ID       string
	Name     string
	Category string
	Unit     string
	Price    float64
}

// LogProductCreate фиксирует создание товара
func (l *Ledger) LogProductCreate(ctx context.Context, p Product) (*models.AuditEntry, error) {
	return l.Log(ctx, models.ActionProductCreate, "product", p.ID, map[string]any{
		"name":     p.Name,
		"category": p.Category,
		"unit":     p.Unit,
		"price":    p.Price,
	}, "Product created: "+p.Name)
}

// LogProductModify фиксирует изменение товара
func (l *Ledger) LogProductModify(ctx context.Context, oldProduct, newProduct Product) (*models.AuditEntry, error) {
	return l.Log(ctx, models.ActionProductModify, "product", newProduct.ID, map[string]any{
		"name":     newProduct.Name,
		"oldPrice": oldProduct.Price,
		"newPrice": newProduct.Price,
	}, "Product modified: "+newProduct.Name)
}

// LogProductDelete фиксирует удаление товара
func (l *Ledger) LogProductDelete(ctx context.Context, p Product) (*models.AuditEntry, error) {
	return l.Log(ctx, models.ActionProductDelete, "product", p.ID, map[string]any{
		"name": p.Name,
	}, "Product deleted: "+p.Name)
}

// LogFarmerRegister фиксирует регистрацию фермера
func (l *Ledger) LogFarmerRegister(ctx context.Context, farmerID, name, village string) (*models.AuditEntry, error) {
	return l.Log(ctx, models.ActionFarmerRegister, "farmer", farmerID, map[string]any{
		"name":    name,
		"village": village,
	}, "Farmer registered: "+name)
}
