package errors

// Code names a specific engine condition. Each code belongs to exactly one
// ErrorType.
type Code string

const (
	// Parameter errors
	CodeBadParam             Code = "bad_param"
	CodeBadSequenceLength    Code = "bad_sequence_length"
	CodeDuplicateSample      Code = "duplicate_sample"
	CodeMetadataDisabled     Code = "metadata_disabled"
	CodeBothColumnsRequired  Code = "both_columns_required"
	CodeUnionBadMap          Code = "union_bad_map"
	CodeBadTablePosition     Code = "bad_table_position"
	CodeColumnLengthMismatch Code = "column_length_mismatch"

	// Bounds errors
	CodeNodeOutOfBounds        Code = "node_out_of_bounds"
	CodeEdgeOutOfBounds        Code = "edge_out_of_bounds"
	CodeSiteOutOfBounds        Code = "site_out_of_bounds"
	CodeMutationOutOfBounds    Code = "mutation_out_of_bounds"
	CodeMigrationOutOfBounds   Code = "migration_out_of_bounds"
	CodePopulationOutOfBounds  Code = "population_out_of_bounds"
	CodeIndividualOutOfBounds  Code = "individual_out_of_bounds"
	CodeProvenanceOutOfBounds  Code = "provenance_out_of_bounds"
	CodeNullParent             Code = "null_parent"
	CodeNullChild              Code = "null_child"
	CodeLeftLessZero           Code = "left_less_zero"
	CodeRightGreaterSeqLength  Code = "right_greater_seq_length"
	CodeGenomeCoordsNonfinite  Code = "genome_coords_nonfinite"
	CodeTimeNonfinite          Code = "time_nonfinite"
	CodeBadSitePosition        Code = "bad_site_position"

	// Ordering errors
	CodeBadEdgeInterval                     Code = "bad_edge_interval"
	CodeBadNodeTimeOrdering                 Code = "bad_node_time_ordering"
	CodeEdgesNoncontiguousParents           Code = "edges_noncontiguous_parents"
	CodeEdgesNotSortedParentTime            Code = "edges_not_sorted_parent_time"
	CodeEdgesNotSortedChild                 Code = "edges_not_sorted_child"
	CodeEdgesNotSortedLeft                  Code = "edges_not_sorted_left"
	CodeDuplicateEdges                      Code = "duplicate_edges"
	CodeBadEdgesContradictoryChildren       Code = "bad_edges_contradictory_children"
	CodeUnsortedSites                       Code = "unsorted_sites"
	CodeDuplicateSitePosition               Code = "duplicate_site_position"
	CodeUnsortedMutations                   Code = "unsorted_mutations"
	CodeMutationParentEqual                 Code = "mutation_parent_equal"
	CodeMutationParentAfterChild            Code = "mutation_parent_after_child"
	CodeMutationParentDifferentSite         Code = "mutation_parent_different_site"
	CodeMutationTimeYoungerThanNode         Code = "mutation_time_younger_than_node"
	CodeMutationTimeOlderThanParentMutation Code = "mutation_time_older_than_parent_mutation"
	CodeMutationTimeOlderThanParentNode     Code = "mutation_time_older_than_parent_node"
	CodeMutationTimeHasBothKnownAndUnknown  Code = "mutation_time_has_both_known_and_unknown"
	CodeTablesNotIndexed                    Code = "tables_not_indexed"
	CodeUnionDiffHistories                  Code = "union_diff_histories"

	// Capacity errors
	CodeTableOverflow  Code = "table_overflow"
	CodeColumnOverflow Code = "column_overflow"
	CodeTreeOverflow   Code = "tree_overflow"

	// Format errors
	CodeFileFormat             Code = "file_format"
	CodeFileVersionTooOld      Code = "file_version_too_old"
	CodeFileVersionTooNew      Code = "file_version_too_new"
	CodeRequiredColumnNotFound Code = "required_column_not_found"
	CodeBadOffset              Code = "bad_offset"
	CodeKeyNotFound            Code = "key_not_found"
	CodeDuplicateKey           Code = "duplicate_key"
	CodeBadType                Code = "bad_type"

	// Unsupported operations
	CodeSortMigrationsNotSupported     Code = "sort_migrations_not_supported"
	CodeSortOffsetNotSupported         Code = "sort_offset_not_supported"
	CodeMigrationsNotSupported         Code = "migrations_not_supported"
	CodeSimplifyMigrationsNotSupported Code = "simplify_migrations_not_supported"
	CodeCantProcessEdgesWithMetadata   Code = "cant_process_edges_with_metadata"
	CodeUnionNotSupported              Code = "union_not_supported"
)

type codeInfo struct {
	errType ErrorType
	message string
}

var codeTable = map[Code]codeInfo{
	CodeBadParam:             {ErrorTypeParameter, "bad parameter value provided"},
	CodeBadSequenceLength:    {ErrorTypeParameter, "sequence length must be a positive finite value"},
	CodeDuplicateSample:      {ErrorTypeParameter, "duplicate sample value"},
	CodeMetadataDisabled:     {ErrorTypeParameter, "metadata is disabled for this table"},
	CodeBothColumnsRequired:  {ErrorTypeParameter, "a ragged column and its offsets must be supplied together"},
	CodeUnionBadMap:          {ErrorTypeParameter, "node map contains an entry outside the node table"},
	CodeBadTablePosition:     {ErrorTypeParameter, "bad table position: cannot truncate beyond the current row count"},
	CodeColumnLengthMismatch: {ErrorTypeParameter, "column arrays have different lengths"},

	CodeNodeOutOfBounds:       {ErrorTypeBounds, "node id out of bounds"},
	CodeEdgeOutOfBounds:       {ErrorTypeBounds, "edge id out of bounds"},
	CodeSiteOutOfBounds:       {ErrorTypeBounds, "site id out of bounds"},
	CodeMutationOutOfBounds:   {ErrorTypeBounds, "mutation id out of bounds"},
	CodeMigrationOutOfBounds:  {ErrorTypeBounds, "migration id out of bounds"},
	CodePopulationOutOfBounds: {ErrorTypeBounds, "population id out of bounds"},
	CodeIndividualOutOfBounds: {ErrorTypeBounds, "individual id out of bounds"},
	CodeProvenanceOutOfBounds: {ErrorTypeBounds, "provenance id out of bounds"},
	CodeNullParent:            {ErrorTypeBounds, "edge parent is null"},
	CodeNullChild:             {ErrorTypeBounds, "edge child is null"},
	CodeLeftLessZero:          {ErrorTypeBounds, "left coordinate is less than zero"},
	CodeRightGreaterSeqLength: {ErrorTypeBounds, "right coordinate is greater than the sequence length"},
	CodeGenomeCoordsNonfinite: {ErrorTypeBounds, "genome coordinates must be finite"},
	CodeTimeNonfinite:         {ErrorTypeBounds, "times must be finite"},
	CodeBadSitePosition:       {ErrorTypeBounds, "site position must be finite and within [0, sequence_length)"},

	CodeBadEdgeInterval:                     {ErrorTypeOrdering, "edge left coordinate must be less than right"},
	CodeBadNodeTimeOrdering:                 {ErrorTypeOrdering, "time[parent] must be greater than time[child]"},
	CodeEdgesNoncontiguousParents:           {ErrorTypeOrdering, "edges for a given parent must be contiguous"},
	CodeEdgesNotSortedParentTime:            {ErrorTypeOrdering, "edges must be listed in parent time order"},
	CodeEdgesNotSortedChild:                 {ErrorTypeOrdering, "edges must be sorted by child within a parent"},
	CodeEdgesNotSortedLeft:                  {ErrorTypeOrdering, "edges must be sorted by left within a parent and child"},
	CodeDuplicateEdges:                      {ErrorTypeOrdering, "duplicate edges provided"},
	CodeBadEdgesContradictoryChildren:       {ErrorTypeOrdering, "a child node has more than one parent on an interval"},
	CodeUnsortedSites:                       {ErrorTypeOrdering, "sites must be sorted by position"},
	CodeDuplicateSitePosition:               {ErrorTypeOrdering, "duplicate site positions"},
	CodeUnsortedMutations:                   {ErrorTypeOrdering, "mutations must be sorted by site and by non-increasing time"},
	CodeMutationParentEqual:                 {ErrorTypeOrdering, "a mutation cannot be its own parent"},
	CodeMutationParentAfterChild:            {ErrorTypeOrdering, "parent mutations must be listed before their children"},
	CodeMutationParentDifferentSite:         {ErrorTypeOrdering, "a mutation's parent must be at the same site"},
	CodeMutationTimeYoungerThanNode:         {ErrorTypeOrdering, "a mutation's time must be at least its node's time"},
	CodeMutationTimeOlderThanParentMutation: {ErrorTypeOrdering, "a mutation's time must not exceed its parent mutation's time"},
	CodeMutationTimeOlderThanParentNode:     {ErrorTypeOrdering, "a mutation's time must be less than the time of the parent of its node"},
	CodeMutationTimeHasBothKnownAndUnknown:  {ErrorTypeOrdering, "known and unknown mutation times cannot be mixed within a site"},
	CodeTablesNotIndexed:                    {ErrorTypeOrdering, "table collection must be indexed"},
	CodeUnionDiffHistories:                  {ErrorTypeOrdering, "shared portions of the collections are not equal"},

	CodeTableOverflow:  {ErrorTypeCapacity, "table too large: cannot exceed 2^31 rows"},
	CodeColumnOverflow: {ErrorTypeCapacity, "ragged column too large: cannot exceed 2^32 elements"},
	CodeTreeOverflow:   {ErrorTypeCapacity, "too many trees"},

	CodeFileFormat:             {ErrorTypeFormat, "file format error"},
	CodeFileVersionTooOld:      {ErrorTypeFormat, "file format version is too old"},
	CodeFileVersionTooNew:      {ErrorTypeFormat, "file format version is too new"},
	CodeRequiredColumnNotFound: {ErrorTypeFormat, "a required column was not found in the file"},
	CodeBadOffset:              {ErrorTypeFormat, "bad offset column: must start at zero, be non-decreasing and end at the column length"},
	CodeKeyNotFound:            {ErrorTypeFormat, "key not found"},
	CodeDuplicateKey:           {ErrorTypeFormat, "duplicate key"},
	CodeBadType:                {ErrorTypeFormat, "unknown or mismatched array type"},

	CodeSortMigrationsNotSupported:     {ErrorTypeUnsupported, "sorting migrations is not supported"},
	CodeSortOffsetNotSupported:         {ErrorTypeUnsupported, "sort offsets for sites and mutations must be zero or the row count"},
	CodeMigrationsNotSupported:         {ErrorTypeUnsupported, "migrations are not supported by this operation"},
	CodeSimplifyMigrationsNotSupported: {ErrorTypeUnsupported, "simplify does not support migrations"},
	CodeCantProcessEdgesWithMetadata:   {ErrorTypeUnsupported, "cannot process edges that carry metadata"},
	CodeUnionNotSupported:              {ErrorTypeUnsupported, "union cannot add an edge from a new parent to a shared child"},
}

// Type returns the error kind the code belongs to.
func (c Code) Type() ErrorType {
	if info, ok := codeTable[c]; ok {
		return info.errType
	}
	return ErrorTypeInternal
}

// Message returns the default human-readable message for the code.
func (c Code) Message() string {
	if info, ok := codeTable[c]; ok {
		return info.message
	}
	return string(c)
}
