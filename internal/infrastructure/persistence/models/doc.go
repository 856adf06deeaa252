// Package models contains GORM persistence models that map to database tables.
// They are kept apart from the domain types so the billing package stays free
// of ORM tags; each model converts with ToDomain and FromDomain.
//
// The schema itself is owned by the SQL migrations, not by AutoMigrate.
package models
