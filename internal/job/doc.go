// Package job turns a frozen config.Resolved into typed views, one per
// consuming component: dataset, model, loss criteria, optimizer, scheduler,
// training strategy, experiment logger, checkpointing and stochastic weight
// averaging. Build checks every key a component reads, so a missing or
// mistyped key fails before any training work starts and names the key.
//
// Keys a view does not know are kept in its Params map and passed through
// to the component untouched.
package job
