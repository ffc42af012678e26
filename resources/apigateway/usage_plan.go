package apigateway

// ApiKey is the AWS::ApiGateway::ApiKey resource.
type ApiKey struct {
	Description any               `json:"Description,omitempty"`
	Enabled     bool              `json:"Enabled,omitempty"`
	Name        any               `json:"Name,omitempty"`
	StageKeys   []ApiKey_StageKey `json:"StageKeys,omitempty"`
	Tags        []any             `json:"Tags,omitempty"`
}

// ResourceType returns the CloudFormation type.
func (ApiKey) ResourceType() string { return "AWS::ApiGateway::ApiKey" }

// ApiKey_StageKey binds a key to a deployed stage.
type ApiKey_StageKey struct {
	RestApiId any `json:"RestApiId,omitempty"`
	StageName any `json:"StageName,omitempty"`
}

// UsagePlan is the AWS::ApiGateway::UsagePlan resource.
type UsagePlan struct {
	ApiStages     []UsagePlan_ApiStage        `json:"ApiStages,omitempty"`
	Description   any                         `json:"Description,omitempty"`
	Quota         *UsagePlan_QuotaSettings    `json:"Quota,omitempty"`
	Tags          []any                       `json:"Tags,omitempty"`
	Throttle      *UsagePlan_ThrottleSettings `json:"Throttle,omitempty"`
	UsagePlanName any                         `json:"UsagePlanName,omitempty"`
}

// ResourceType returns the CloudFormation type.
func (UsagePlan) ResourceType() string { return "AWS::ApiGateway::UsagePlan" }

// UsagePlan_ApiStage is an API stage governed by the plan.
type UsagePlan_ApiStage struct {
	ApiId any `json:"ApiId,omitempty"`
	Stage any `json:"Stage,omitempty"`
}

// UsagePlan_QuotaSettings caps the number of requests per period.
type UsagePlan_QuotaSettings struct {
	Limit  int `json:"Limit,omitempty"`
	Offset int `json:"Offset,omitempty"`
	Period any `json:"Period,omitempty"`
}

// UsagePlan_ThrottleSettings sets the steady-state rate and burst.
type UsagePlan_ThrottleSettings struct {
	BurstLimit int     `json:"BurstLimit,omitempty"`
	RateLimit  float64 `json:"RateLimit,omitempty"`
}

// UsagePlanKey is the AWS::ApiGateway::UsagePlanKey resource.
type UsagePlanKey struct {
	KeyId       any `json:"KeyId"`
	KeyType     any `json:"KeyType"`
	UsagePlanId any `json:"UsagePlanId"`
}

// ResourceType returns the CloudFormation type.
func (UsagePlanKey) ResourceType() string { return "AWS::ApiGateway::UsagePlanKey" }
