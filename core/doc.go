// Package core defines the domain contracts shared by every FiscalMesh
// component: the transaction lifecycle (phases, statuses, tiers, lock states),
// the immutable Dictamen and DeliberationRecord value types, the Agent
// capability contract and its immutable Registry, the DeliberationStore
// persistence interface and the external collaborator boundaries
// (blacklist lookup, evidence repository, notification sink).
//
// Keeping all contracts in one leaf package lets higher layers (dispatch,
// engine, stores, agents) depend on interfaces without importing each other.
package core
