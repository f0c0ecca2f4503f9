// Package bridge is the scheduler capability surface the rest of the
// module suspends through: readiness waits on socket handles, cooperative
// sleep, and the worker-thread escape hatch with a portal that lets
// synchronous code call back into the task that launched it.
package bridge
