// Package models contains the GORM models the persistence layer maps
// to database tables. Domain entities stay free of ORM tags; mappers
// here convert in both directions.
//
// Layout:
//   - base.go: shared model embeds (BaseModel, AggregateModel,
//     TenantAggregateModel)
//   - identity.go: merchant account model
//   - ledger.go: customer, transaction, and credit entry snapshot
//     models
package models
