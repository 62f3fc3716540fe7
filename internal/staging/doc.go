// Package staging manages per-batch scratch workspaces.
//
// Each batch locks its own workspace directory with a lock file so that
// concurrent partmix processes sharing a scratch root never touch each
// other's engine contexts. CleanStale reclaims workspaces left behind by
// runs that crashed before removing them.
package staging
