package stub

import (
	"fmt"

	"github.com/starford/raido/internal/record"
)

// Seed loads a small deterministic fixture set so the stub is usable out of
// the box. Existing records are overwritten, which makes re-seeding safe.
func Seed(store *Store) error {
	for resource, recs := range fixtures() {
		for _, rec := range recs {
			id, _ := rec["id"].(string)
			if err := store.Put(resource, id, rec); err != nil {
				return fmt.Errorf("stub: seed %s/%s: %w", resource, id, err)
			}
		}
	}
	return nil
}

func fixtures() map[string][]record.Record {
	return map[string][]record.Record{
		"orders": {
			{"id": "ord-1001", "orderNumber": "A-1001", "status": "pending", "paymentMethod": "card", "amount": 149.90, "createdAt": "2024-05-01T09:15:00Z"},
			{"id": "ord-1002", "orderNumber": "A-1002", "status": "delivered", "paymentMethod": "cash", "amount": 42.50, "createdAt": "2024-05-02T14:30:00Z"},
			{"id": "ord-1003", "orderNumber": "A-1003", "status": "cancelled", "paymentMethod": "card", "amount": 310.00, "createdAt": "2024-05-03T11:00:00Z"},
		},
		"products": {
			{"id": "prd-2001", "name": "Espresso Beans 1kg", "status": "active", "category": "coffee", "price": 18.00, "createdAt": "2024-04-10T08:00:00Z"},
			{"id": "prd-2002", "name": "Oat Milk 6-pack", "status": "inactive", "category": "dairy-alternatives", "price": 11.40, "createdAt": "2024-04-12T08:00:00Z"},
		},
		"companies": {
			{"id": "cmp-3001", "companyName": "Northwind Traders", "status": "active", "email": "ops@northwind.example", "createdAt": "2024-03-01T10:00:00Z"},
			{"id": "cmp-3002", "companyName": "Acme Wholesale", "status": "suspended", "email": "admin@acme.example", "createdAt": "2024-03-05T10:00:00Z"},
		},
		"categories": {
			{"id": "cat-4001", "name": "Coffee", "isActive": true},
			{"id": "cat-4002", "name": "Bakery", "isActive": false},
		},
		"brands": {
			{"id": "brd-5001", "name": "Northwind", "isActive": true},
		},
		"users": {
			{"id": "usr-6001", "fullName": "Dana Reyes", "email": "dana@example.com", "status": "active", "phone": "+1-555-0101", "createdAt": "2024-02-15T12:00:00Z"},
			{"id": "usr-6002", "fullName": "Sam Oduya", "email": "sam@example.com", "status": "blocked", "phone": "+1-555-0102", "createdAt": "2024-02-20T12:00:00Z"},
		},
		"kyc": {
			{"id": "6f1d2a3b-4c5d-6e7f-8091-a2b3c4d5e6f7", "userName": "Dana Reyes", "status": "pending", "documentType": "passport", "createdAt": "2024-05-04T16:45:00Z"},
		},
		"sellers": {
			{"id": "slr-7001", "storeName": "Reyes Deli", "status": "verified", "createdAt": "2024-01-10T09:00:00Z"},
		},
		"delivery-persons": {
			{"id": "dlp-8001", "fullName": "Kim Walker", "status": "active", "vehicleType": "bike", "createdAt": "2024-01-20T09:00:00Z"},
		},
		"offers": {
			{"id": "off-9001", "title": "Spring Sale", "status": "active", "discountPercent": 15, "createdAt": "2024-04-01T00:00:00Z"},
		},
	}
}
