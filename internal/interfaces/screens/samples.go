package screens

import (
	"encoding/json"
	"fmt"
	"hash/fnv"
	"strconv"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v7"

	"github.com/erp/console/internal/domain/entity"
	"github.com/erp/console/internal/domain/filter"
)

var (
	sampleFrom = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	sampleTo   = time.Date(2024, time.December, 31, 0, 0, 0, 0, time.UTC)
)

// sampleFuncs build one demo record. Sample ids are prefixed so they can
// never collide with server-assigned ids.
var sampleFuncs = map[string]func(f *gofakeit.Faker, i int) entity.Record{
	"products": func(f *gofakeit.Faker, i int) entity.Record {
		category := f.ProductCategory()
		return entity.Record{
			"sku":          fmt.Sprintf("SKU-%05d", f.Number(1, 99999)),
			"name":         f.ProductName(),
			"categoryId":   num(f.Number(1, 8)),
			"categoryName": category,
			"price":        money(f.Price(1, 1000)),
			"stock":        num(f.Number(0, 500)),
			"status":       f.RandomString(activeState),
			"description":  f.Sentence(6),
		}
	},
	"categories": func(f *gofakeit.Faker, i int) entity.Record {
		return entity.Record{"name": f.ProductCategory(), "description": f.Sentence(5)}
	},
	"orders": func(f *gofakeit.Faker, i int) entity.Record {
		return entity.Record{
			"orderNumber":  fmt.Sprintf("ORD-2024-%04d", i+1),
			"customerName": f.Name(),
			"userId":       num(f.Number(1, 20)),
			"orderDate":    day(f),
			"totalAmount":  money(f.Price(10, 5000)),
			"status":       f.RandomString([]string{"PENDING", "CONFIRMED", "SHIPPED", "DELIVERED", "CANCELLED"}),
		}
	},
	"order-items": func(f *gofakeit.Faker, i int) entity.Record {
		qty := f.Number(1, 10)
		price := f.Price(1, 500)
		return entity.Record{
			"orderId":     num(f.Number(1, 50)),
			"productId":   num(f.Number(1, 100)),
			"productName": f.ProductName(),
			"quantity":    num(qty),
			"unitPrice":   money(price),
			"total":       money(float64(qty) * price),
		}
	},
	"payments": func(f *gofakeit.Faker, i int) entity.Record {
		return entity.Record{
			"orderId":     num(f.Number(1, 50)),
			"amount":      money(f.Price(10, 5000)),
			"method":      f.RandomString([]string{"CASH", "CARD", "TRANSFER"}),
			"paymentDate": day(f),
			"reference":   strings.ToUpper(f.UUID()[:8]),
			"status":      f.RandomString([]string{"PENDING", "COMPLETED", "FAILED", "REFUNDED"}),
		}
	},
	"invoices": func(f *gofakeit.Faker, i int) entity.Record {
		issued := f.DateRange(sampleFrom, sampleTo)
		return entity.Record{
			"invoiceNumber": fmt.Sprintf("INV-2024-%04d", i+1),
			"orderId":       num(f.Number(1, 50)),
			"amount":        money(f.Price(10, 5000)),
			"issueDate":     issued.Format(filter.DateLayout),
			"dueDate":       issued.AddDate(0, 0, 30).Format(filter.DateLayout),
			"status":        f.RandomString([]string{"DRAFT", "ISSUED", "PAID", "OVERDUE", "CANCELLED"}),
		}
	},
	"warehouses": func(f *gofakeit.Faker, i int) entity.Record {
		city := f.City()
		return entity.Record{
			"code":     fmt.Sprintf("WH-%02d", i+1),
			"name":     city + " Warehouse",
			"location": city,
			"capacity": num(f.Number(1, 50) * 1000),
			"status":   f.RandomString(activeState),
		}
	},
	"stock-movements": func(f *gofakeit.Faker, i int) entity.Record {
		return entity.Record{
			"productId":     num(f.Number(1, 100)),
			"productName":   f.ProductName(),
			"warehouseId":   num(f.Number(1, 5)),
			"warehouseName": f.City() + " Warehouse",
			"type":          f.RandomString([]string{"IN", "OUT", "TRANSFER", "ADJUSTMENT"}),
			"quantity":      num(f.Number(1, 200)),
			"movementDate":  day(f),
			"reference":     fmt.Sprintf("MV-%05d", f.Number(1, 99999)),
		}
	},
	"users": func(f *gofakeit.Faker, i int) entity.Record {
		role := f.RandomString([]string{RoleAdmin, RoleManager, "USER"})
		return entity.Record{
			"username": f.Username(),
			"fullName": f.Name(),
			"email":    f.Email(),
			"roleId":   num(roleIndex(role)),
			"roleName": role,
			"active":   f.Bool(),
		}
	},
	"roles": func(f *gofakeit.Faker, i int) entity.Record {
		name := f.JobTitle()
		if i < 3 {
			name = []string{RoleAdmin, RoleManager, "USER"}[i]
		}
		return entity.Record{"name": name, "description": f.Sentence(4)}
	},
	"permissions": func(f *gofakeit.Faker, i int) entity.Record {
		resource := f.RandomString([]string{"products", "categories", "orders", "payments", "invoices", "warehouses", "users"})
		action := f.RandomString([]string{"view", "create", "edit", "delete"})
		return entity.Record{
			"name":        resource + ":" + action,
			"resource":    resource,
			"action":      action,
			"description": f.Sentence(5),
		}
	},
}

// generate builds n sample records for resource. The same seed always
// yields the same records.
func generate(resource string, seed uint64, n int) entity.WorkingSet {
	fn, ok := sampleFuncs[resource]
	if !ok {
		return nil
	}
	h := fnv.New64a()
	h.Write([]byte(resource))
	f := gofakeit.New(seed ^ h.Sum64())

	ws := make(entity.WorkingSet, 0, n)
	for i := 0; i < n; i++ {
		rec := fn(f, i)
		rec["id"] = "sample-" + strconv.Itoa(i+1)
		ws = append(ws, rec)
	}
	return ws
}

func roleIndex(role string) int {
	switch role {
	case RoleAdmin:
		return 1
	case RoleManager:
		return 2
	default:
		return 3
	}
}

func num(n int) json.Number {
	return json.Number(strconv.Itoa(n))
}

func money(v float64) json.Number {
	return json.Number(strconv.FormatFloat(v, 'f', 2, 64))
}

func day(f *gofakeit.Faker) string {
	return f.DateRange(sampleFrom, sampleTo).Format(filter.DateLayout)
}
