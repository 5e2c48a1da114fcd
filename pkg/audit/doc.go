// Package audit keeps an owner's change history for delegated mutations.
//
// The history is deliberately one sided: it answers "who changed my data on
// my behalf", not "what did I change myself". Appends are asynchronous and
// best effort, so a slow or failing history store never blocks or fails
// the mutation that triggered the record.
package audit
