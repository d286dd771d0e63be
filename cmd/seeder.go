package cmd

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with sample data",
	Long:  `Seed the database with a demo company, users with a manager chain, approval workflows and expense categories.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(".")
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}

		_, db, err := initDB(cfg.Database)
		if err != nil {
			log.Fatalf("failed to init db: %v", err)
		}

		if clearData {
			for _, table := range []string{"audit_logs", "approvals", "expenses", "user_permissions", "permissions", "expense_categories", "approval_workflows", "users", "companies"} {
				if err := db.Exec("TRUNCATE TABLE " + table + " RESTART IDENTITY CASCADE").Error; err != nil {
					log.Fatalf("failed to clear table %s: %v", table, err)
				}
			}
			fmt.Println("Cleared existing data")
		}

		companyID := seedCompany(db, "Demo Corp", "USD")
		seedCategories(db, companyID)

		hash, _ := bcrypt.GenerateFromPassword([]byte("password"), cfg.Security.BCryptCost)

		adminID := seedUser(db, companyID, "admin@demo.test", "Dana Admin", "admin", nil, string(hash))
		financeID := seedUser(db, companyID, "finance@demo.test", "Farid Finance", "finance", nil, string(hash))
		managerID := seedUser(db, companyID, "manager@demo.test", "Mira Manager", "manager", &financeID, string(hash))
		seedUser(db, companyID, "employee@demo.test", "Evan Employee", "employee", &managerID, string(hash))

		seedWorkflows(db, companyID, financeID)

		permissions := []struct {
			Name string
			Desc string
		}{
			{"admin", "full administrator"},
			{"approve_expenses", "Can approve expenses"},
			{"reject_expenses", "Can reject expenses"},
			{"delegate_approvals", "Can delegate pending approvals"},
			{"view_expenses", "Can view expenses"},
			{"create_expenses", "Can create expenses"},
		}
		for _, p := range permissions {
			seedPermission(db, p.Name, p.Desc)
		}

		grantPermissions(db, adminID, []string{"admin", "approve_expenses", "reject_expenses", "delegate_approvals", "view_expenses", "create_expenses"})
		grantPermissions(db, financeID, []string{"approve_expenses", "reject_expenses", "delegate_approvals", "view_expenses", "create_expenses"})
		grantPermissions(db, managerID, []string{"approve_expenses", "reject_expenses", "delegate_approvals", "view_expenses", "create_expenses"})

		fmt.Println("Database seeded successfully")
	},
}

func seedCompany(db *gorm.DB, name, currency string) int64 {
	var id int64
	if err := db.Raw("SELECT id FROM companies WHERE name = ?", name).Row().Scan(&id); err == nil {
		return id
	}
	if err := db.Raw(
		"INSERT INTO companies (name, currency_code, created_at, updated_at) VALUES (?, ?, now(), now()) RETURNING id",
		name, currency).Row().Scan(&id); err != nil {
		log.Fatalf("failed to insert company %s: %v", name, err)
	}
	fmt.Println("Seeded company:", name)
	return id
}

func seedUser(db *gorm.DB, companyID int64, email, name, role string, managerID *int64, passwordHash string) int64 {
	var id int64
	if err := db.Raw("SELECT id FROM users WHERE email = ?", email).Row().Scan(&id); err == nil {
		return id
	}
	if err := db.Raw(
		"INSERT INTO users (company_id, email, name, password_hash, role, manager_id, is_active, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, true, now(), now()) RETURNING id",
		companyID, email, name, passwordHash, role, managerID).Row().Scan(&id); err != nil {
		log.Fatalf("failed to insert user %s: %v", email, err)
	}
	fmt.Println("Seeded user:", email)
	return id
}

func seedPermission(db *gorm.DB, name, desc string) {
	var id int64
	if err := db.Raw("SELECT id FROM permissions WHERE name = ?", name).Row().Scan(&id); err == nil {
		return
	}
	if err := db.Exec("INSERT INTO permissions (name, description, created_at) VALUES (?, ?, now())", name, desc).Error; err != nil {
		log.Fatalf("failed to insert permission %s: %v", name, err)
	}
}

func grantPermissions(db *gorm.DB, userID int64, names []string) {
	for _, name := range names {
		var pid int64
		if err := db.Raw("SELECT id FROM permissions WHERE name = ?", name).Row().Scan(&pid); err != nil {
			log.Fatalf("permission not found %s: %v", name, err)
		}
		var exists int
		if err := db.Raw("SELECT 1 FROM user_permissions WHERE user_id = ? AND permission_id = ?", userID, pid).Row().Scan(&exists); err == nil {
			continue
		}
		if err := db.Exec("INSERT INTO user_permissions (user_id, permission_id, granted_by, created_at) VALUES (?, ?, NULL, now())", userID, pid).Error; err != nil {
			log.Fatalf("failed to grant permission %s to user %d: %v", name, userID, err)
		}
	}
}

func seedWorkflows(db *gorm.DB, companyID, financeUserID int64) {
	var exists int
	if err := db.Raw("SELECT 1 FROM approval_workflows WHERE company_id = ?", companyID).Row().Scan(&exists); err == nil {
		return
	}

	// Two-step chain: direct manager first, then any finance user.
	sequentialRules := `{"approval_levels":[{"level":1,"strategy":"manager"},{"level":2,"strategy":"role","role":"finance"}]}`
	if err := db.Exec(
		"INSERT INTO approval_workflows (company_id, name, workflow_type, priority, is_active, rules, created_at, updated_at) VALUES (?, ?, 'sequential', 10, true, ?::jsonb, now(), now())",
		companyID, "Manager then finance", sequentialRules).Error; err != nil {
		log.Fatalf("failed to insert sequential workflow: %v", err)
	}

	// Inactive sample of a conditional amount split, kept for demos:
	// anything up to 100.00 auto-approves, the rest goes to finance.
	conditionalRules := fmt.Sprintf(
		`{"approval_rules":[{"min_amount":0,"max_amount":10000,"approver_id":0},{"min_amount":10001,"approver_id":%d}]}`,
		financeUserID)
	if err := db.Exec(
		"INSERT INTO approval_workflows (company_id, name, workflow_type, priority, is_active, rules, created_at, updated_at) VALUES (?, ?, 'conditional', 5, false, ?::jsonb, now(), now())",
		companyID, "Auto-approve under 100", conditionalRules).Error; err != nil {
		log.Fatalf("failed to insert conditional workflow: %v", err)
	}
	fmt.Println("Seeded approval workflows")
}

func seedCategories(db *gorm.DB, companyID int64) {
	categories := []struct {
		Name string
		Desc string
	}{
		{"travel", "business travel and transport"},
		{"meals", "meals and entertainment"},
		{"office", "office supplies and equipment"},
		{"software", "software licenses and subscriptions"},
		{"other", "miscellaneous expenses"},
	}

	for _, c := range categories {
		var exists int
		if err := db.Raw("SELECT 1 FROM expense_categories WHERE company_id = ? AND name = ?", companyID, c.Name).Row().Scan(&exists); err != nil {
			if err := db.Exec(
				"INSERT INTO expense_categories (company_id, name, description, is_active, created_at, updated_at) VALUES (?, ?, ?, true, now(), now())",
				companyID, c.Name, c.Desc).Error; err != nil {
				log.Fatalf("failed to insert expense category %s: %v", c.Name, err)
			}
			fmt.Printf("Seeded expense category: %s\n", c.Name)
		}
	}
}
