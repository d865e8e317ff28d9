// Package mutation rewrites formula trees into translatable form.
//
// A Pipeline runs a fixed sequence of passes over a tree:
//
//	Raw -> BFBValidated -> Forked -> Casted
//
// BFBChecker validates BEFORE FILTER BY references against the dataset's
// field ids. LodToQueryFork replaces every aggregate that carries a LOD
// directive with a QueryFork joined back on the enclosing scope's
// dimensions. CastInsertion wraps operands whose type does not match the
// called function's signature. StructureCheck rejects aggregated
// expressions that reference fields which are not dimensions.
//
// Every pass returns a new tree or a validation error; no pass mutates its
// input and no partial result is ever returned.
package mutation
