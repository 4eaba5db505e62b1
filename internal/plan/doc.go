/*
Package plan performs the construction phase of a run: it turns the run
configuration and a raw-data directory into a validated, ready-to-schedule
*dag.Graph.

Construction is a multi-pass process and nothing is submitted until every
pass has succeeded:

 1. Input discovery: the raw-data directory is listed once and every declared
    sample is matched against that listing. Files that no sample owns are
    collected as Unassigned.

 2. Quantification jobs: one job per sample, added to the graph in declared
    order. The reference path is validated here.

 3. Groups and aggregation jobs: group specs are resolved against the
    declared samples and one aggregation job (plus its manifest) is built and
    added per group, in declared order.

Any error aborts the whole plan. Insertion order into the graph is the
scheduler's FIFO order, so a plan built twice from the same configuration
schedules identically.
*/
package plan
