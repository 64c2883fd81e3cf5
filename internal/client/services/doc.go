// Package services contains the application services of the propscan
// client. They sit between the terminal UI and the domain client: auth keeps
// the session and the cached balance in step with logins, usage performs
// billable actions and deducts them optimistically, and balance reconciles
// the cached balance with the backend on demand or on a schedule.
package services
