// Package domain holds the tagged, structured entity types shared across
// Agency OS services. Types here carry no behavior beyond small invariant
// helpers; business logic lives in the service packages that consume them.
package domain
