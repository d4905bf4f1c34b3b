package models

type QueryType string

const (
	QueryTypeSchoolDetails     QueryType = "school_details"
	QueryTypeSchoolsByDistrict QueryType = "schools_by_district"
	QueryTypeSchoolsByBorough  QueryType = "schools_by_borough"
	QueryTypeSchoolReviews     QueryType = "school_reviews"
)
