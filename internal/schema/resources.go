package schema

// ResourceSchema defines the schema for a resource type.
type ResourceSchema struct {
	Required   []string
	Properties map[string]PropertySchema
}

// PropertySchema defines the schema for a property. Min and Max bound
// Integer properties when Max is set.
type PropertySchema struct {
	Type          string
	AllowedValues []string
	Min, Max      float64
}

var (
	str     = PropertySchema{Type: "String"}
	boolean = PropertySchema{Type: "Boolean"}
	list    = PropertySchema{Type: "List"}
	object  = PropertySchema{Type: "Map"}
	jsonDoc = PropertySchema{Type: "Json"}
)

var httpMethods = []string{"ANY", "DELETE", "GET", "HEAD", "OPTIONS", "PATCH", "POST", "PUT"}

// resourceSchemas covers the resource types declared under resources/.
var resourceSchemas = map[string]ResourceSchema{
	"AWS::IAM::Role": {
		Required: []string{"AssumeRolePolicyDocument"},
		Properties: map[string]PropertySchema{
			"AssumeRolePolicyDocument": jsonDoc,
			"Description":              str,
			"ManagedPolicyArns":        list,
			"MaxSessionDuration":       {Type: "Integer", Min: 3600, Max: 43200},
			"Path":                     str,
			"Policies":                 list,
			"RoleName":                 str,
			"Tags":                     list,
		},
	},
	"AWS::Lambda::Function": {
		Required: []string{"Code", "Role"},
		Properties: map[string]PropertySchema{
			"Architectures": list,
			"Code":          object,
			"Description":   str,
			"Environment":   object,
			"FunctionName":  str,
			"Handler":       str,
			"MemorySize":    {Type: "Integer", Min: 128, Max: 10240},
			"Role":          str,
			"Runtime":       str,
			"Tags":          list,
			"Timeout":       {Type: "Integer", Min: 1, Max: 900},
		},
	},
	"AWS::Lambda::Permission": {
		Required: []string{"Action", "FunctionName", "Principal"},
		Properties: map[string]PropertySchema{
			"Action":        str,
			"FunctionName":  str,
			"Principal":     str,
			"SourceAccount": str,
			"SourceArn":     str,
		},
	},
	"AWS::ApiGateway::RestApi": {
		Properties: map[string]PropertySchema{
			"ApiKeySourceType":      {Type: "String", AllowedValues: []string{"AUTHORIZER", "HEADER"}},
			"BinaryMediaTypes":      list,
			"Description":           str,
			"EndpointConfiguration": object,
			"Name":                  str,
			"Policy":                jsonDoc,
			"Tags":                  list,
		},
	},
	"AWS::ApiGateway::Resource": {
		Required: []string{"ParentId", "PathPart", "RestApiId"},
		Properties: map[string]PropertySchema{
			"ParentId":  str,
			"PathPart":  str,
			"RestApiId": str,
		},
	},
	"AWS::ApiGateway::Method": {
		Required: []string{"HttpMethod", "ResourceId", "RestApiId"},
		Properties: map[string]PropertySchema{
			"ApiKeyRequired":    boolean,
			"AuthorizationType": {Type: "String", AllowedValues: []string{"AWS_IAM", "COGNITO_USER_POOLS", "CUSTOM", "NONE"}},
			"HttpMethod":        {Type: "String", AllowedValues: httpMethods},
			"Integration":       object,
			"ResourceId":        str,
			"RestApiId":         str,
		},
	},
	"AWS::ApiGateway::Deployment": {
		Required: []string{"RestApiId"},
		Properties: map[string]PropertySchema{
			"Description": str,
			"RestApiId":   str,
		},
	},
	"AWS::ApiGateway::Stage": {
		Required: []string{"RestApiId"},
		Properties: map[string]PropertySchema{
			"DeploymentId": str,
			"Description":  str,
			"RestApiId":    str,
			"StageName":    str,
			"Tags":         list,
		},
	},
	"AWS::ApiGateway::ApiKey": {
		Properties: map[string]PropertySchema{
			"Description": str,
			"Enabled":     boolean,
			"Name":        str,
			"StageKeys":   list,
			"Tags":        list,
		},
	},
	"AWS::ApiGateway::UsagePlan": {
		Properties: map[string]PropertySchema{
			"ApiStages":     list,
			"Description":   str,
			"Quota":         object,
			"Tags":          list,
			"Throttle":      object,
			"UsagePlanName": str,
		},
	},
	"AWS::ApiGateway::UsagePlanKey": {
		Required: []string{"KeyId", "KeyType", "UsagePlanId"},
		Properties: map[string]PropertySchema{
			"KeyId":       str,
			"KeyType":     {Type: "String", AllowedValues: []string{"API_KEY"}},
			"UsagePlanId": str,
		},
	},
}
