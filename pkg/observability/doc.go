/*
Package observability provides tools for monitoring the dotmap editor.

Metrics turns editor lifecycle hooks into Prometheus series and instruments
HTTP handlers. Combine its hooks with your own through
domain.LifecycleHooks.Merge.
*/
package observability
